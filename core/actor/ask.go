package actor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"time"
)

type (
	// AskMessage is a request whose result travels back to the asker.
	AskMessage[T any] interface {
		Compute(ctx *Context) (T, Error)
	}

	// AskFunc adapts a function to [AskMessage].
	AskFunc[T any] func(ctx *Context) (T, Error)
)

func (f AskFunc[T]) Compute(ctx *Context) (T, Error) { return f(ctx) }

// AskFor builds a request that only runs against behaviors of type B. Any
// other receiver answers with [ErrInvalidMessage].
func AskFor[B any, T any](f func(b B, ctx *Context) T) AskMessage[T] {
	return AskFunc[T](func(ctx *Context) (T, Error) {
		b, ok := ctx.Behavior().(B)
		if !ok {
			var zero T
			return zero, ErrInvalidMessage
		}
		return f(b, ctx), NoError
	})
}

type askReply[T any] struct {
	value T
	err   Error
}

// askEnvelope carries a request together with its private one-slot reply
// channel. A new envelope is created per request.
type askEnvelope[T any] struct {
	req   AskMessage[T]
	reply chan askReply[T]
	chain []*Mailbox
}

type chained interface{ askChain() []*Mailbox }

func (e *askEnvelope[T]) DoWork(ctx *Context) Error {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			e.deliver(zero, Fault(r, debug.Stack()))
			panic(r)
		}
	}()

	v, err := e.req.Compute(ctx)
	e.deliver(v, err)
	return err
}

func (e *askEnvelope[T]) deliver(v T, err Error) {
	select {
	case e.reply <- askReply[T]{value: v, err: err}:
	default:
	}
}

func (e *askEnvelope[T]) askChain() []*Mailbox { return e.chain }
func (e *askEnvelope[T]) MsgType() string      { return msgTypeOf(e.req) }

// Ask posts req to h and blocks until the receiver has computed the answer or
// ctx is done. A deadline on ctx yields [ErrAskTimeout]; the request itself
// is not withdrawn and may still execute later.
//
// When ctx is an actor's *Context (or derived from one) Ask refuses targets
// that are already blocked on the current ask chain, since the receiver could
// never answer: [ErrSelfAsk] for the executing actor, [ErrAskCycle] for any
// actor further up the chain.
func Ask[T any](ctx context.Context, h Handle, req AskMessage[T], priority Priority) (T, error) {
	var zero T
	if h.IsZero() {
		return zero, ErrNoHandle
	}

	chain, _ := ctx.Value(askChainKey{}).([]*Mailbox)
	if n := len(chain); n > 0 {
		if chain[n-1] == h.mb {
			return zero, ErrSelfAsk
		}
		if slices.Contains(chain, h.mb) {
			return zero, ErrAskCycle
		}
	}

	env := &askEnvelope[T]{
		req:   req,
		reply: make(chan askReply[T], 1),
		chain: chain,
	}
	if err := h.Enqueue(env, priority); err != nil {
		return zero, err
	}

	select {
	case r := <-env.reply:
		return r.value, r.err.Err()
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %w", ErrAskTimeout, ctx.Err())
		}
		return zero, ctx.Err()
	}
}

// SendAndWaitForResponse is the blocking form of [Ask]. It returns the zero
// value of T when the receiver fails or does not answer within timeout; pass
// [NoTimeout] to wait without bound. Callers that need to tell "no answer"
// apart from a legitimate zero answer should use Ask.
func SendAndWaitForResponse[T any](h Handle, req AskMessage[T], priority Priority, timeout time.Duration) T {
	ctx := context.Background()
	if timeout >= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	v, _ := Ask(ctx, h, req, priority)
	return v
}
