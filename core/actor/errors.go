package actor

import "errors"

var (
	// Mailbox errors
	ErrMailboxClosed   = errors.New("mailbox closed")
	ErrInvalidPriority = errors.New("invalid message priority")
	ErrNoHandle        = errors.New("no mailbox handle")
	ErrNilMessage      = errors.New("nil message")

	// Lifecycle errors
	ErrAlreadyLaunched = errors.New("actor already launched")
	ErrActorStopped    = errors.New("actor stopped")

	// Ask errors
	ErrAskTimeout = errors.New("ask timed out")
	ErrSelfAsk    = errors.New("actor cannot ask itself synchronously")
	ErrAskCycle   = errors.New("synchronous ask cycle detected")

	// Resender errors
	ErrResenderStopped = errors.New("resender stopped")
)
