package actor

import "context"

// controlMessage marks runtime messages that bypass Behavior.OnMessage.
type controlMessage interface {
	Message
	control()
}

// Stop clears the running flag of the receiving actor. Messages still
// buffered behind it are never dequeued.
type Stop struct{}

func (Stop) DoWork(ctx *Context) Error {
	ctx.Stop()
	return NoError
}

func (Stop) MsgType() string { return "actor.stop" }
func (Stop) control()        {}

// SendStop posts a Stop message, at Critical priority when emergency is set
// and at Normal priority otherwise.
func SendStop(h Handle, emergency bool) error {
	if emergency {
		return h.EnqueueCritical(Stop{})
	}
	return h.Enqueue(Stop{}, Normal)
}

type pauseMsg struct{}

func (pauseMsg) DoWork(ctx *Context) Error {
	ctx.actor.paused = true
	return NoError
}

func (pauseMsg) MsgType() string { return "actor.pause" }
func (pauseMsg) control()        {}

type resumeMsg struct{}

func (resumeMsg) DoWork(ctx *Context) Error {
	ctx.actor.paused = false
	return NoError
}

func (resumeMsg) MsgType() string { return "actor.resume" }
func (resumeMsg) control()        {}

// LastAsk is a no-op request. Its answer proves that everything enqueued
// ahead of it in the same or a higher tier has been dequeued.
type LastAsk struct{}

func (LastAsk) Compute(*Context) (struct{}, Error) { return struct{}{}, NoError }
func (LastAsk) MsgType() string                     { return "actor.last_ask" }

// Barrier sends a LastAsk at Low priority and waits for its answer, so it
// returns once every message enqueued on h before the call has been dequeued.
func Barrier(ctx context.Context, h Handle) error {
	_, err := Ask[struct{}](ctx, h, LastAsk{}, Low)
	return err
}
