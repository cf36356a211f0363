package actor

// Handle is the enqueue-only side of a [Mailbox]. It is the only reference to
// an actor that is handed out; the dequeue side stays with the actor.
//
// The zero Handle addresses nothing and rejects every message with [ErrNoHandle].
// Handles are comparable: two handles are equal when they address the same mailbox.
type Handle struct {
	mb *Mailbox
}

func newHandle(mb *Mailbox) Handle { return Handle{mb: mb} }

// Enqueue posts msg at priority p.
func (h Handle) Enqueue(msg Message, p Priority) error {
	if h.mb == nil {
		return ErrNoHandle
	}
	return h.mb.Enqueue(msg, p)
}

// EnqueueCritical posts msg ahead of every buffered message.
func (h Handle) EnqueueCritical(msg Message) error {
	return h.Enqueue(msg, Critical)
}

func (h Handle) Name() string {
	if h.mb == nil {
		return ""
	}
	return h.mb.Name()
}

func (h Handle) IsZero() bool { return h.mb == nil }

func (h Handle) String() string {
	if h.mb == nil {
		return "<nil handle>"
	}
	return "handle(" + h.mb.Name() + ")"
}
