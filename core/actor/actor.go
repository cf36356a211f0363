package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type (
	OnPanic func(recovered any, stack []byte, msg Message)

	// OnError handles a failed message result. It replaces the default
	// handler, which logs and carries on.
	OnError func(ctx *Context, msg Message, err Error)
)

// State is the lifecycle phase of an actor. It only ever moves forward.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Options struct {
	// Name identifies the actor in logs and metrics. A random id is used if empty.
	Name    string
	Context context.Context
	Logger  *slog.Logger
	// Caller is the handle of the launching actor, returned by CallerHandle.
	Caller Handle
	// IdleTimeout bounds each wait on an empty mailbox. Zero waits without bound.
	IdleTimeout time.Duration
	OnPanic     OnPanic
	OnError     OnError
	Metrics     Metrics
	// MaxConcurrentTasks caps the number of tasks run via Context.Schedule.
	// If 0 or negative, 32 is used.
	MaxConcurrentTasks int
}

// Actor binds one mailbox to one worker goroutine which executes messages
// strictly one after another.
type Actor struct {
	id       string
	log      *slog.Logger
	mailbox  *Mailbox
	caller   Handle
	behavior Behavior
	metrics  Metrics
	sched    Scheduler

	idleTimeout time.Duration
	onPanic     OnPanic
	onError     OnError

	ctx    context.Context
	cancel context.CancelFunc

	state atomic.Int32
	done  chan struct{}

	// owned by the worker goroutine
	running bool
	paused  bool
}

// New creates an actor in the [StateCreated] state. Nothing runs until Launch.
func New(b Behavior, opt Options) *Actor {
	if b == nil {
		b = BaseBehavior{}
	}
	if opt.Name == "" {
		opt.Name = fmt.Sprintf("actor-%s", gonanoid.Must(8))
	}
	if opt.Context == nil {
		opt.Context = context.Background()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Metrics == nil {
		opt.Metrics = NopMetrics()
	}
	if opt.MaxConcurrentTasks <= 0 {
		opt.MaxConcurrentTasks = 32
	}
	if opt.IdleTimeout <= 0 {
		opt.IdleTimeout = NoTimeout
	}

	log := opt.Logger.With(slog.String("actor", opt.Name))
	if opt.OnPanic == nil {
		opt.OnPanic = func(recovered any, stack []byte, msg Message) {
			log.Error("actor panicked",
				slog.Any("recovered", recovered),
				slog.String("msg_type", msgTypeOf(msg)),
				slog.String("stack", string(compactTrace(stack))),
			)
		}
	}

	ctx, cancel := context.WithCancel(opt.Context)

	return &Actor{
		id:          opt.Name,
		log:         log,
		mailbox:     NewMailbox(opt.Name),
		caller:      opt.Caller,
		behavior:    b,
		metrics:     opt.Metrics,
		sched:       NewSchedulerWithMetrics(opt.MaxConcurrentTasks, ctx, opt.Name, opt.Metrics, log),
		idleTimeout: opt.IdleTimeout,
		onPanic:     opt.OnPanic,
		onError:     opt.OnError,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Launch runs OnStart on a new worker goroutine, starts the mailbox loop and
// returns the handle to the actor's own mailbox. If OnStart fails the actor
// ends up stopped and the error is returned.
func (a *Actor) Launch() (Handle, error) {
	if !a.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return Handle{}, ErrAlreadyLaunched
	}

	started := make(chan error, 1)
	go a.loop(started)

	if err := <-started; err != nil {
		<-a.done
		return Handle{}, err
	}
	return a.Self(), nil
}

func (a *Actor) ID() string { return a.id }

// Self returns the handle to the actor's own mailbox.
func (a *Actor) Self() Handle { return newHandle(a.mailbox) }

// CallerHandle returns the handle of the actor that launched this one. It is
// the zero Handle when no caller was configured.
func (a *Actor) CallerHandle() Handle { return a.caller }

func (a *Actor) State() State { return State(a.state.Load()) }

// Done is closed when the worker goroutine has exited.
func (a *Actor) Done() <-chan struct{} { return a.done }

// Stop enqueues a Stop message at Critical priority and returns immediately.
func (a *Actor) Stop() error { return SendStop(a.Self(), true) }

// Pause makes the actor process only Critical messages until Resume. Sends are
// still accepted and buffered in the meantime.
func (a *Actor) Pause() error { return a.mailbox.Enqueue(pauseMsg{}, Critical) }

// Resume ends a Pause.
func (a *Actor) Resume() error { return a.mailbox.Enqueue(resumeMsg{}, Critical) }

// Close stops the actor and waits for its worker to exit. It is idempotent and
// safe to call on an actor that was never launched.
func (a *Actor) Close(ctx context.Context) error {
	if a.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
		a.mailbox.Close()
		a.cancel()
		close(a.done)
		return nil
	}

	if err := a.Stop(); err != nil && !errors.Is(err, ErrMailboxClosed) {
		return fmt.Errorf("failed to stop actor: %w", err)
	}

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---- internals ----

func (a *Actor) stopRunning() {
	a.running = false
	a.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
}

func (a *Actor) newContext(chain []*Mailbox) *Context {
	return &Context{Context: a.ctx, actor: a, chain: append(slices.Clip(chain), a.mailbox)}
}

func (a *Actor) loop(started chan<- error) {
	defer close(a.done)

	base := a.newContext(nil)

	if err := a.start(base); err != nil {
		a.log.Error("actor failed to start", slog.Any("error", err))
		a.mailbox.Close()
		a.cancel()
		a.state.Store(int32(StateStopped))
		started <- err
		return
	}
	started <- nil

	a.log.Debug("actor started")

	a.running = true
	for a.running {
		maxPri := Low
		if a.paused {
			maxPri = Critical
		}

		msg, err := a.mailbox.dequeue(a.ctx, maxPri, a.idleTimeout)
		if err != nil {
			if errors.Is(err, errDequeueTimeout) {
				continue
			}
			// context cancelled or mailbox closed underneath us
			a.stopRunning()
			break
		}
		a.metrics.MailboxDepth(a.id, a.mailbox.Len())

		a.process(msg)
	}

	a.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
	a.mailbox.Close()
	a.sched.Wait()
	a.stopBehavior(base)
	a.cancel()
	a.state.Store(int32(StateStopped))

	a.log.Debug("actor stopped", slog.Int("pending", a.mailbox.Len()))
}

func (a *Actor) start(c *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Fault(r, debug.Stack())
		}
	}()
	if err := a.behavior.OnStart(c); err != nil {
		return fmt.Errorf("failed to start actor: %w", err)
	}
	return nil
}

func (a *Actor) stopBehavior(c *Context) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("actor panicked in OnStop", slog.Any("recovered", r))
		}
	}()
	a.behavior.OnStop(c)
}

func (a *Actor) process(msg Message) {
	mt := msgTypeOf(msg)
	defer a.metrics.MessageDuration(mt).ObserveDuration()

	var chain []*Mailbox
	if ch, ok := msg.(chained); ok {
		chain = ch.askChain()
	}
	c := a.newContext(chain)

	res := a.invoke(c, msg, mt)
	a.metrics.MessageProcessed(mt, !res.IsError())
	if res.IsError() {
		a.handleError(c, msg, mt, res)
	}
}

// invoke runs one message and converts a panic into a fault result.
func (a *Actor) invoke(c *Context, msg Message, mt string) (res Error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			a.metrics.MessagePanic(mt)
			if a.onPanic != nil {
				a.onPanic(r, stack, msg)
			}
			res = Fault(r, stack)
		}
	}()

	if _, ok := msg.(controlMessage); ok {
		return msg.DoWork(c)
	}
	return a.behavior.OnMessage(c, msg)
}

func (a *Actor) handleError(c *Context, msg Message, mt string, res Error) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("error handler panicked", slog.Any("recovered", r), slog.String("msg_type", mt))
		}
	}()

	switch {
	case a.onError != nil:
		a.onError(c, msg, res)
	default:
		if h, ok := a.behavior.(ErrorHandler); ok {
			h.OnError(c, msg, res)
			return
		}
		a.log.Error("message failed",
			slog.String("msg_type", mt),
			slog.Int("code", res.Code()),
			slog.String("error", res.Message()),
		)
	}
}
