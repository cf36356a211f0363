// Package actor is an in-process actor runtime built around a priority
// mailbox.
//
// Each actor owns one [Mailbox] and one worker goroutine. The worker takes
// one message at a time and runs it to completion before taking the next, so
// behavior state is only ever touched by that goroutine and needs no locks.
// Other code only gets a [Handle], which can enqueue but never dequeue.
//
// # Priorities
//
// A mailbox has four FIFO tiers: [Critical], [High], [Normal] and [Low].
// A tier is only looked at once every more urgent tier is empty, even when the
// more urgent message arrived after older, less urgent ones.
// [Stop] is sent at Critical by default and therefore overtakes any backlog.
//
// # Creating Actors
//
//	type counter struct {
//	    actor.BaseBehavior
//	    n int
//	}
//
//	a := actor.New(&counter{}, actor.Options{Name: "counter"})
//	h, err := a.Launch()
//	defer a.Close(ctx)
//
// # Sending Messages
//
// Use [Send] for fire-and-forget messages and [For] to bind a message to a
// behavior type:
//
//	inc := actor.For(func(c *counter, ctx *actor.Context) actor.Error {
//	    c.n++
//	    return actor.NoError
//	})
//	err := actor.Send(h, inc, actor.High)
//
// Use [Ask] or [SendAndWaitForResponse] for request/response:
//
//	get := actor.AskFor(func(c *counter, ctx *actor.Context) int { return c.n })
//	n, err := actor.Ask(ctx, h, get, actor.Normal)
//
// # Errors
//
// Messages return an [Error] value. Failed results go to the actor's error
// handler, which logs by default and never stops the loop. Panics inside a
// message are recovered and turned into a [CodeFault] result.
//
// # Deadlocks
//
// An actor that synchronously asks itself, or an actor that is currently
// waiting on it, can never be answered. [Ask] detects both when called with
// the *Context of the executing message and returns [ErrSelfAsk] or
// [ErrAskCycle]. [SendAndWaitForResponse] has no context and cannot tell.
//
// # Lifecycle
//
// Actors move from created to running to stopping to stopped and never back.
// Always pair Launch with Close; Close enqueues a Critical Stop and waits
// for the worker to exit, so no goroutine outlives its owner.
//
// # Periodic Sends
//
// A [Resender] posts the same message to a handle at a fixed interval on its
// own goroutine and can be steered with [SendNow], [SkipNext],
// [SendNowAndStop] and [StopAll].
//
// # Groups
//
// A [Group] launches named actors on first use and routes keys to them with
// rendezvous hashing, so every key is handled by exactly one member.
package actor
