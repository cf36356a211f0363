package actor

import "fmt"

// Priority selects the mailbox tier a message is buffered in. Lower values
// are drained first.
type Priority int

const (
	Critical Priority = iota
	High
	Normal
	Low
)

// NumPriorities is the number of mailbox tiers.
const NumPriorities = 4

func (p Priority) Valid() bool { return p >= Critical && p <= Low }

func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}
