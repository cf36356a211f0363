// Package sf wraps golang.org/x/sync/singleflight with a typed result.
//
// While a call for a key is in flight, further calls with the same key wait
// for it and share its result instead of running the function again. The
// actor group uses it so that concurrent lookups of a missing member launch
// that member exactly once:
//
//	launching := sf.New[actor.Actor]()
//	a, err := launching.Do(name, func() (*actor.Actor, error) {
//	    return launchMember(name)
//	})
package sf
