package actor

import (
	"github.com/codewandler/prioactor/internal/reflector"
)

type (
	// Message is a unit of work executed on the receiving actor's worker
	// goroutine. DoWork is called at most once, never concurrently with any
	// other message of the same actor.
	Message interface {
		DoWork(ctx *Context) Error
	}

	// MessageFunc adapts a function to [Message].
	MessageFunc func(ctx *Context) Error
)

func (f MessageFunc) DoWork(ctx *Context) Error { return f(ctx) }

// For builds a message that only runs against behaviors of type B. Any other
// receiver gets [ErrInvalidMessage].
func For[B any](f func(b B, ctx *Context) Error) Message {
	return MessageFunc(func(ctx *Context) Error {
		b, ok := ctx.Behavior().(B)
		if !ok {
			return ErrInvalidMessage
		}
		return f(b, ctx)
	})
}

// Send posts msg to h, fire-and-forget. Priority defaults to [Normal].
func Send(h Handle, msg Message, priority ...Priority) error {
	p := Normal
	if len(priority) > 0 {
		p = priority[0]
	}
	return h.Enqueue(msg, p)
}

type msgTyper interface{ MsgType() string }

// msgTypeOf names a message for logs and metric labels. Messages can choose
// their own name by implementing MsgType() string.
func msgTypeOf(msg any) string {
	if mt, ok := msg.(msgTyper); ok {
		return mt.MsgType()
	}
	return reflector.TypeInfoOf(msg).Name
}
