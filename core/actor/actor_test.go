package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ---- test behavior ----

type recorder struct {
	BaseBehavior

	mu   sync.Mutex
	seen []string

	started atomic.Int32
	stopped atomic.Int32
	count   int // only touched on the worker goroutine
}

func (r *recorder) OnStart(*Context) error {
	r.started.Add(1)
	return nil
}

func (r *recorder) OnStop(*Context) { r.stopped.Add(1) }

func (r *recorder) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, s)
}

func (r *recorder) Seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

type named struct {
	name string
	Message
}

func (n named) MsgType() string { return n.name }

func record(s string) Message {
	return named{name: s, Message: For(func(r *recorder, ctx *Context) Error {
		r.record(s)
		return NoError
	})}
}

// gate blocks the worker until release is closed.
func gate(entered chan<- struct{}, release <-chan struct{}) Message {
	return MessageFunc(func(*Context) Error {
		close(entered)
		<-release
		return NoError
	})
}

func newTestActor(t *testing.T, b Behavior, opts ...func(*Options)) (*Actor, Handle) {
	t.Helper()
	o := Options{Context: t.Context()}
	for _, f := range opts {
		f(&o)
	}
	a := New(b, o)
	h, err := a.Launch()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, a.Close(ctx))
	})
	return a, h
}

// blockWorker parks the worker inside a message and returns its release func.
func blockWorker(t *testing.T, h Handle) func() {
	t.Helper()
	entered := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, Send(h, gate(entered, release), Critical))
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up the gate")
	}
	return sync.OnceFunc(func() { close(release) })
}

func waitDone(t *testing.T, a *Actor) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("actor did not stop")
	}
}

// ---- lifecycle ----

func TestActor_lifecycle(t *testing.T) {
	r := &recorder{}
	a := New(r, Options{Name: "lifecycle"})
	require.Equal(t, StateCreated, a.State())
	require.Equal(t, "lifecycle", a.ID())

	h, err := a.Launch()
	require.NoError(t, err)
	require.False(t, h.IsZero())
	require.Equal(t, a.Self(), h)
	require.Equal(t, "lifecycle", h.Name())
	require.Equal(t, StateRunning, a.State())
	require.Equal(t, int32(1), r.started.Load())

	_, err = a.Launch()
	require.ErrorIs(t, err, ErrAlreadyLaunched)

	require.NoError(t, a.Close(t.Context()))
	require.Equal(t, StateStopped, a.State())
	require.Equal(t, int32(1), r.stopped.Load())

	// idempotent
	require.NoError(t, a.Close(t.Context()))
	require.Equal(t, int32(1), r.stopped.Load())

	require.ErrorIs(t, Send(h, record("late")), ErrMailboxClosed)
}

func TestActor_generatedName(t *testing.T) {
	a := New(nil, Options{})
	require.Regexp(t, `^actor-.{8}$`, a.ID())
	require.NoError(t, a.Close(t.Context()))
}

type failingStart struct {
	BaseBehavior
	stopped atomic.Bool
}

func (f *failingStart) OnStart(*Context) error { return errors.New("no database") }
func (f *failingStart) OnStop(*Context)        { f.stopped.Store(true) }

func TestActor_launchFailsWhenOnStartFails(t *testing.T) {
	b := &failingStart{}
	a := New(b, Options{})

	h, err := a.Launch()
	require.ErrorContains(t, err, "no database")
	require.True(t, h.IsZero())
	require.Equal(t, StateStopped, a.State())
	waitDone(t, a)
	require.False(t, b.stopped.Load())
	require.ErrorIs(t, a.Self().Enqueue(record("x"), Normal), ErrMailboxClosed)
}

func TestActor_closeNeverLaunched(t *testing.T) {
	r := &recorder{}
	a := New(r, Options{})
	require.NoError(t, a.Close(t.Context()))
	require.Equal(t, StateStopped, a.State())
	waitDone(t, a)

	_, err := a.Launch()
	require.ErrorIs(t, err, ErrAlreadyLaunched)
	require.Zero(t, r.started.Load())
}

func TestActor_contextCancelReleasesWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	r := &recorder{}
	a := New(r, Options{Context: ctx})
	_, err := a.Launch()
	require.NoError(t, err)

	cancel()
	waitDone(t, a)
	require.Equal(t, StateStopped, a.State())
	require.Equal(t, int32(1), r.stopped.Load())
}

func TestActor_callerHandle(t *testing.T) {
	parent := NewMailbox("parent")
	a, _ := newTestActor(t, &recorder{}, func(o *Options) { o.Caller = newHandle(parent) })
	require.Equal(t, newHandle(parent), a.CallerHandle())

	solo, _ := newTestActor(t, &recorder{})
	require.True(t, solo.CallerHandle().IsZero())
}

// ---- ordering ----

func TestActor_processesInPriorityOrder(t *testing.T) {
	r := &recorder{}
	_, h := newTestActor(t, r)

	release := blockWorker(t, h)
	require.NoError(t, Send(h, record("low"), Low))
	require.NoError(t, Send(h, record("normal-1")))
	require.NoError(t, Send(h, record("high"), High))
	require.NoError(t, Send(h, record("normal-2"), Normal))
	release()

	require.NoError(t, Barrier(t.Context(), h))
	require.Equal(t, []string{"high", "normal-1", "normal-2", "low"}, r.Seen())
}

func TestActor_stopPreemptsBacklog(t *testing.T) {
	r := &recorder{}
	a, h := newTestActor(t, r)

	release := blockWorker(t, h)
	require.NoError(t, Send(h, record("normal"), Normal))
	require.NoError(t, Send(h, record("high"), High))
	require.NoError(t, Send(h, record("low"), Low))
	require.NoError(t, SendStop(h, true))
	release()

	waitDone(t, a)
	require.Empty(t, r.Seen())

	pending := a.mailbox.Flush()
	require.Len(t, pending, 3)
	require.Equal(t, "high", msgTypeOf(pending[0]))
	require.Equal(t, "normal", msgTypeOf(pending[1]))
	require.Equal(t, "low", msgTypeOf(pending[2]))
}

func TestActor_nonEmergencyStopQueuesBehindNormal(t *testing.T) {
	r := &recorder{}
	a, h := newTestActor(t, r)

	release := blockWorker(t, h)
	require.NoError(t, Send(h, record("normal"), Normal))
	require.NoError(t, SendStop(h, false))
	require.NoError(t, Send(h, record("after-stop"), Normal))
	release()

	waitDone(t, a)
	require.Equal(t, []string{"normal"}, r.Seen())
	require.Len(t, a.mailbox.Flush(), 1)
}

// M1 (Normal) and M2 (High) are queued before the worker drains anything.
// M2 is taken first; Stop arrives at Critical while M2 runs and overtakes M1,
// which is never dequeued.
func TestActor_endToEndScenario(t *testing.T) {
	r := &recorder{}
	a, h := newTestActor(t, r)

	m2Running := make(chan struct{})
	m2Release := make(chan struct{})
	m2 := named{name: "M2", Message: For(func(r *recorder, ctx *Context) Error {
		r.record("M2")
		close(m2Running)
		<-m2Release
		return NoError
	})}

	release := blockWorker(t, h)
	require.NoError(t, Send(h, record("M1"), Normal))
	require.NoError(t, Send(h, m2, High))
	release()

	select {
	case <-m2Running:
	case <-time.After(time.Second):
		t.Fatal("M2 not executed")
	}
	require.NoError(t, SendStop(h, true))
	close(m2Release)

	waitDone(t, a)
	require.Equal(t, []string{"M2"}, r.Seen())
	require.Equal(t, StateStopped, a.State())

	pending := a.mailbox.Flush()
	require.Len(t, pending, 1)
	require.Equal(t, "M1", msgTypeOf(pending[0]))
}

// ---- isolation ----

func TestActor_sequentialExecution(t *testing.T) {
	r := &recorder{}
	_, h := newTestActor(t, r)

	inc := For(func(r *recorder, ctx *Context) Error {
		r.count++
		return NoError
	})

	const senders, perSender = 10, 200
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				_ = Send(h, inc, Priority(j%NumPriorities))
			}
		}()
	}
	wg.Wait()

	n, err := Ask(t.Context(), h, AskFor(func(r *recorder, ctx *Context) int { return r.count }), Low)
	require.NoError(t, err)
	require.Equal(t, senders*perSender, n)
}

// ---- errors ----

type other struct{ BaseBehavior }

func TestActor_invalidMessageIsHandledAndLoopContinues(t *testing.T) {
	errs := make(chan Error, 1)
	r := &recorder{}
	_, h := newTestActor(t, r, func(o *Options) {
		o.OnError = func(ctx *Context, msg Message, err Error) { errs <- err }
	})

	require.NoError(t, Send(h, For(func(o *other, ctx *Context) Error { return NoError })))
	require.NoError(t, Send(h, record("after")))

	select {
	case err := <-errs:
		require.ErrorIs(t, err, ErrInvalidMessage)
		require.Equal(t, CodeInvalidMessage, err.Code())
	case <-time.After(time.Second):
		t.Fatal("no error reported")
	}
	require.NoError(t, Barrier(t.Context(), h))
	require.Equal(t, []string{"after"}, r.Seen())
}

func TestActor_panicBecomesFault(t *testing.T) {
	errs := make(chan Error, 1)
	panics := make(chan any, 1)
	r := &recorder{}
	_, h := newTestActor(t, r, func(o *Options) {
		o.OnError = func(ctx *Context, msg Message, err Error) { errs <- err }
		o.OnPanic = func(recovered any, stack []byte, msg Message) { panics <- recovered }
	})

	require.NoError(t, Send(h, MessageFunc(func(*Context) Error { panic("kaboom") })))
	require.NoError(t, Send(h, record("survived")))

	select {
	case err := <-errs:
		require.Equal(t, CodeFault, err.Code())
		require.Contains(t, err.Message(), "kaboom")
		require.NotEmpty(t, err.Trace())
	case <-time.After(time.Second):
		t.Fatal("no error reported")
	}
	require.Equal(t, "kaboom", <-panics)

	require.NoError(t, Barrier(t.Context(), h))
	require.Equal(t, []string{"survived"}, r.Seen())
}

// forwarder escalates every failure to the actor that launched it.
type forwarder struct{ BaseBehavior }

type failure struct{ err Error }

func (f failure) DoWork(*Context) Error { return NoError }

func (forwarder) OnError(ctx *Context, msg Message, err Error) {
	_ = Send(ctx.Caller(), failure{err: err}, High)
}

func TestActor_errorHandlerForwardsToCaller(t *testing.T) {
	parent := NewMailbox("parent")
	_, h := newTestActor(t, forwarder{}, func(o *Options) { o.Caller = newHandle(parent) })

	require.NoError(t, Send(h, MessageFunc(func(*Context) Error { return NewError(42, "disk full") })))

	msg, ok := parent.Dequeue(time.Second)
	require.True(t, ok)
	f, ok := msg.(failure)
	require.True(t, ok)
	require.Equal(t, 42, f.err.Code())
	require.Equal(t, "disk full", f.err.Message())
}

// ---- pause / resume ----

func TestActor_pauseOnlyProcessesCritical(t *testing.T) {
	r := &recorder{}
	a, h := newTestActor(t, r)

	require.NoError(t, a.Pause())
	require.NoError(t, Send(h, record("buffered"), High))
	require.NoError(t, Send(h, record("urgent"), Critical))

	require.Eventually(t, func() bool { return len(r.Seen()) == 1 }, time.Second, time.Millisecond)
	require.Equal(t, []string{"urgent"}, r.Seen())
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, a.mailbox.Len())

	require.NoError(t, a.Resume())
	require.NoError(t, Barrier(t.Context(), h))
	require.Equal(t, []string{"urgent", "buffered"}, r.Seen())
}

func TestActor_closeWhilePaused(t *testing.T) {
	r := &recorder{}
	a := New(r, Options{})
	h, err := a.Launch()
	require.NoError(t, err)

	require.NoError(t, a.Pause())
	require.NoError(t, Send(h, record("never")))
	require.NoError(t, a.Close(t.Context()))
	require.Empty(t, r.Seen())
}

// ---- misc ----

func TestActor_idleTimeoutKeepsLooping(t *testing.T) {
	r := &recorder{}
	_, h := newTestActor(t, r, func(o *Options) { o.IdleTimeout = 2 * time.Millisecond })

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, Send(h, record("after-idle")))
	require.NoError(t, Barrier(t.Context(), h))
	require.Equal(t, []string{"after-idle"}, r.Seen())
}

func TestActor_flushSelf(t *testing.T) {
	r := &recorder{}
	_, h := newTestActor(t, r)

	flushed := make(chan int, 1)
	release := blockWorker(t, h)
	require.NoError(t, Send(h, MessageFunc(func(ctx *Context) Error {
		flushed <- len(ctx.FlushSelf())
		return NoError
	}), High))
	require.NoError(t, Send(h, record("dropped-1")))
	require.NoError(t, Send(h, record("dropped-2"), Low))
	release()

	select {
	case n := <-flushed:
		require.Equal(t, 2, n)
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	require.NoError(t, Barrier(t.Context(), h))
	require.Empty(t, r.Seen())
}

func TestActor_scheduleReportsBackThroughMailbox(t *testing.T) {
	r := &recorder{}
	_, h := newTestActor(t, r)

	require.NoError(t, Send(h, MessageFunc(func(ctx *Context) Error {
		self := ctx.Self()
		ctx.Schedule(func() {
			_ = Send(self, record("from-task"))
		})
		return NoError
	})))

	require.Eventually(t, func() bool {
		s := r.Seen()
		return len(s) == 1 && s[0] == "from-task"
	}, time.Second, time.Millisecond)
}

func TestActor_closeWaitsForScheduledTasks(t *testing.T) {
	var finished atomic.Bool
	a := New(&recorder{}, Options{})
	h, err := a.Launch()
	require.NoError(t, err)

	require.NoError(t, Send(h, MessageFunc(func(ctx *Context) Error {
		ctx.Schedule(func() {
			time.Sleep(30 * time.Millisecond)
			finished.Store(true)
		})
		return NoError
	})))
	require.NoError(t, Barrier(t.Context(), h))

	require.NoError(t, a.Close(t.Context()))
	require.True(t, finished.Load())
}
