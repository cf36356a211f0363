package actor

type (
	// Behavior holds an actor's state and lifecycle hooks. The runtime calls
	// every hook on the actor's own worker goroutine.
	Behavior interface {
		// OnStart runs before the first message. A non-nil error aborts the launch.
		OnStart(ctx *Context) error
		// OnMessage executes one message. Implementations that intercept
		// messages must fall back to msg.DoWork(ctx) for the ones they don't
		// handle, otherwise ask requests are never answered.
		OnMessage(ctx *Context, msg Message) Error
		// OnStop runs once after the loop exits.
		OnStop(ctx *Context)
	}

	// ErrorHandler can be implemented by a Behavior to replace the default
	// handling of failed messages, which only logs.
	ErrorHandler interface {
		OnError(ctx *Context, msg Message, err Error)
	}
)

// BaseBehavior provides no-op hooks. Embed it and override what you need.
type BaseBehavior struct{}

func (BaseBehavior) OnStart(*Context) error                    { return nil }
func (BaseBehavior) OnMessage(ctx *Context, msg Message) Error { return msg.DoWork(ctx) }
func (BaseBehavior) OnStop(*Context)                           {}

var _ Behavior = BaseBehavior{}
