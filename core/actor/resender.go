package actor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ResendOption steers the next tick of a [Resender].
type ResendOption int

const (
	// SendNow sends a copy immediately and keeps the schedule running.
	SendNow ResendOption = iota
	// SkipNext consumes the current tick without sending.
	SkipNext
	// SendNowAndStop sends one last copy and halts.
	SendNowAndStop
	// StopAll halts without sending.
	StopAll
)

func (o ResendOption) String() string {
	switch o {
	case SendNow:
		return "send_now"
	case SkipNext:
		return "skip_next"
	case SendNowAndStop:
		return "send_now_and_stop"
	case StopAll:
		return "stop_all"
	default:
		return fmt.Sprintf("resend_option(%d)", int(o))
	}
}

// ResenderOption configures a Resender.
type ResenderOption func(*resenderConfig)

type resenderConfig struct {
	name        string
	copies      int
	priority    Priority
	controlSize int
	log         *slog.Logger
	metrics     Metrics
}

// WithCopies limits the number of ticks. 0, the default, never stops by count.
func WithCopies(n int) ResenderOption {
	return func(c *resenderConfig) {
		if n >= 0 {
			c.copies = n
		}
	}
}

// WithResendPriority sets the priority copies are sent at (default: Normal).
func WithResendPriority(p Priority) ResenderOption {
	return func(c *resenderConfig) { c.priority = p }
}

func WithResenderName(name string) ResenderOption {
	return func(c *resenderConfig) { c.name = name }
}

func WithResenderLogger(log *slog.Logger) ResenderOption {
	return func(c *resenderConfig) { c.log = log }
}

func WithResenderMetrics(m Metrics) ResenderOption {
	return func(c *resenderConfig) { c.metrics = m }
}

// Resender posts the same message to a handle at a fixed interval on its own
// goroutine. The message is sent as is every time, so it must not carry state
// that the receiver mutates.
type Resender struct {
	target   Handle
	msg      Message
	interval time.Duration
	cfg      resenderConfig
	log      *slog.Logger

	control  chan ResendOption
	launched atomic.Bool
	running  atomic.Bool
	sent     atomic.Int64
	done     chan struct{}
}

// NewResender prepares a resender for msg. With interval <= 0 copies are only
// sent on SendNow / SendNowAndStop.
func NewResender(target Handle, msg Message, interval time.Duration, opts ...ResenderOption) *Resender {
	cfg := resenderConfig{
		priority:    Normal,
		controlSize: 16,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		cfg.name = fmt.Sprintf("resender-%s", gonanoid.Must(8))
	}
	if cfg.log == nil {
		cfg.log = slog.Default()
	}
	if cfg.metrics == nil {
		cfg.metrics = NopMetrics()
	}

	return &Resender{
		target:   target,
		msg:      msg,
		interval: interval,
		cfg:      cfg,
		log:      cfg.log.With(slog.String("resender", cfg.name)),
		control:  make(chan ResendOption, cfg.controlSize),
		done:     make(chan struct{}),
	}
}

// Launch starts the resend loop.
func (r *Resender) Launch() error {
	if !r.launched.CompareAndSwap(false, true) {
		return ErrAlreadyLaunched
	}
	r.running.Store(true)
	go r.loop()
	return nil
}

// Control queues opt for the loop. It only affects the next tick and never
// withdraws a copy that was already sent.
func (r *Resender) Control(opt ResendOption) error {
	select {
	case <-r.done:
		return ErrResenderStopped
	default:
	}
	select {
	case <-r.done:
		return ErrResenderStopped
	case r.control <- opt:
		return nil
	}
}

// Close halts the loop without sending and waits for it to exit.
func (r *Resender) Close() {
	if r.launched.CompareAndSwap(false, true) {
		close(r.done)
		return
	}
	_ = r.Control(StopAll)
	<-r.done
}

// Done is closed once the loop has halted.
func (r *Resender) Done() <-chan struct{} { return r.done }

func (r *Resender) Running() bool { return r.running.Load() }

// Sent returns the number of copies successfully enqueued so far.
func (r *Resender) Sent() int64 { return r.sent.Load() }

func (r *Resender) loop() {
	defer close(r.done)
	defer r.running.Store(false)

	remaining := r.cfg.copies

	for r.running.Load() {
		var (
			tick  <-chan time.Time
			timer *time.Timer
		)
		if r.interval > 0 {
			timer = time.NewTimer(r.interval)
			tick = timer.C
		}

		select {
		case opt := <-r.control:
			switch opt {
			case SendNow:
				r.send()
			case SkipNext:
				r.cfg.metrics.ResendSkipped(r.cfg.name)
			case SendNowAndStop:
				r.send()
				r.running.Store(false)
			case StopAll:
				r.running.Store(false)
			default:
				r.log.Warn("unknown resend option", slog.Any("option", opt))
			}
		case <-tick:
			r.send()
		}

		if timer != nil {
			timer.Stop()
		}

		if r.cfg.copies > 0 {
			remaining--
			if remaining <= 0 {
				break
			}
		}
	}

	r.log.Debug("resender halted", slog.Int64("sent", r.sent.Load()))
}

func (r *Resender) send() {
	err := r.target.Enqueue(r.msg, r.cfg.priority)
	switch {
	case err == nil:
		r.sent.Add(1)
		r.cfg.metrics.ResendSent(r.cfg.name)
	case errors.Is(err, ErrMailboxClosed), errors.Is(err, ErrNoHandle):
		r.log.Info("resend target gone, halting", slog.Any("error", err))
		r.running.Store(false)
	default:
		r.log.Warn("failed to resend message", slog.Any("error", err))
	}
}
