// Package hrw implements rendezvous (highest random weight) hashing: every
// member gets a score per key and the highest score wins. Removing a member
// only moves the keys that member owned.
package hrw

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Best returns the member with the highest score for key. ok is false if
// members is empty. seed personalises the scores and may be empty.
func Best(key string, members []string, seed string) (best string, ok bool) {
	var top uint64
	for _, m := range members {
		s := Score(key, m, seed)
		if !ok || s > top || (s == top && m < best) {
			best, top, ok = m, s, true
		}
	}
	return best, ok
}

// Score is the 64-bit weight of member for key.
func Score(key, member, seed string) uint64 {
	// an 8-byte digest is exactly one uint64
	h, _ := blake2b.New(8, nil)

	if seed != "" {
		h.Write([]byte(seed))
		h.Write([]byte{0})
	}
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write([]byte(member))

	return binary.BigEndian.Uint64(h.Sum(nil))
}
