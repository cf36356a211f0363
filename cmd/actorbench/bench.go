package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	promadapter "github.com/codewandler/prioactor/adapters/prometheus"
	"github.com/codewandler/prioactor/core/actor"
)

// worker is the behavior every benchmark actor runs.
type worker struct {
	actor.BaseBehavior
	workTime  time.Duration
	processed [actor.NumPriorities]int
	beats     int
}

func (w *worker) OnStop(ctx *actor.Context) {
	ctx.Log().Debug("worker stopped",
		slog.Int("critical", w.processed[actor.Critical]),
		slog.Int("high", w.processed[actor.High]),
		slog.Int("normal", w.processed[actor.Normal]),
		slog.Int("low", w.processed[actor.Low]),
		slog.Int("heartbeats", w.beats),
	)
}

type work struct{ prio actor.Priority }

func (m work) DoWork(ctx *actor.Context) actor.Error {
	w, ok := ctx.Behavior().(*worker)
	if !ok {
		return actor.ErrInvalidMessage
	}
	if w.workTime > 0 {
		time.Sleep(w.workTime)
	}
	w.processed[m.prio]++
	return actor.NoError
}

func (work) MsgType() string { return "bench.work" }

type heartbeat struct{}

func (heartbeat) DoWork(ctx *actor.Context) actor.Error {
	w, ok := ctx.Behavior().(*worker)
	if !ok {
		return actor.ErrInvalidMessage
	}
	w.beats++
	return actor.NoError
}

func (heartbeat) MsgType() string { return "bench.heartbeat" }

var total = actor.AskFor(func(w *worker, _ *actor.Context) int {
	n := 0
	for _, p := range w.processed {
		n += p
	}
	return n
})

type bench struct {
	cfg     Config
	log     *slog.Logger
	reg     *prometheus.Registry
	metrics actor.Metrics
}

func newBench(cfg Config, log *slog.Logger) *bench {
	reg := prometheus.NewRegistry()
	return &bench{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		metrics: promadapter.NewActorMetrics(reg),
	}
}

func (b *bench) metricsHandler() http.Handler {
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{})
}

// Result summarises one benchmark run.
type Result struct {
	Elapsed   time.Duration
	Sent      int64
	Rejected  int64
	Asks      int64
	AskFailed int64
	Processed int
	Resent    int64
	latencies []time.Duration
}

func (r Result) Percentile(p float64) time.Duration {
	if len(r.latencies) == 0 {
		return 0
	}
	i := int(float64(len(r.latencies)-1) * p)
	return r.latencies[i]
}

func (r Result) Print(w io.Writer) {
	secs := r.Elapsed.Seconds()
	_, _ = fmt.Fprintf(w, "elapsed:     %s\n", r.Elapsed.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "sent:        %d (%.0f msg/s)\n", r.Sent, float64(r.Sent)/secs)
	_, _ = fmt.Fprintf(w, "rejected:    %d\n", r.Rejected)
	_, _ = fmt.Fprintf(w, "processed:   %d\n", r.Processed)
	_, _ = fmt.Fprintf(w, "heartbeats:  %d\n", r.Resent)
	_, _ = fmt.Fprintf(w, "asks:        %d (%d failed)\n", r.Asks, r.AskFailed)
	_, _ = fmt.Fprintf(w, "ask latency: p50=%s p99=%s max=%s\n", r.Percentile(.5), r.Percentile(.99), r.Percentile(1))
}

func (b *bench) Run(ctx context.Context) (Result, error) {
	group := actor.NewGroup(actor.GroupOptions{
		Seed:    "actorbench",
		Context: ctx,
		Logger:  b.log,
		Metrics: b.metrics,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := group.Close(closeCtx); err != nil {
			b.log.Error("failed to close group", slog.Any("error", err))
		}
	}()

	factory := func(string) (actor.Behavior, error) {
		return &worker{workTime: b.cfg.WorkTime}, nil
	}

	var resenders []*actor.Resender
	for i := 0; i < b.cfg.Actors; i++ {
		name := fmt.Sprintf("worker-%03d", i)
		h, err := group.GetOrLaunch(name, factory)
		if err != nil {
			return Result{}, fmt.Errorf("failed to launch %s: %w", name, err)
		}
		if b.cfg.Heartbeat > 0 {
			r := actor.NewResender(h, heartbeat{}, b.cfg.Heartbeat,
				actor.WithResendPriority(actor.High),
				actor.WithResenderName("heartbeat-"+name),
				actor.WithResenderLogger(b.log),
				actor.WithResenderMetrics(b.metrics),
			)
			if err := r.Launch(); err != nil {
				return Result{}, err
			}
			resenders = append(resenders, r)
		}
	}
	b.log.Info("actors launched", slog.Int("actors", group.Len()), slog.Int("senders", b.cfg.Senders))

	var (
		res       Result
		sent      atomic.Int64
		rejected  atomic.Int64
		asks      atomic.Int64
		askFailed atomic.Int64
		mu        sync.Mutex
	)

	loadCtx, cancel := context.WithTimeout(ctx, b.cfg.Duration)
	defer cancel()

	start := time.Now()
	eg, egCtx := errgroup.WithContext(loadCtx)
	for s := 0; s < b.cfg.Senders; s++ {
		eg.Go(func() error {
			var local []time.Duration
			defer func() {
				mu.Lock()
				res.latencies = append(res.latencies, local...)
				mu.Unlock()
			}()

			for i := 0; egCtx.Err() == nil; i++ {
				key := fmt.Sprintf("key-%d-%d", s, i%1024)
				prio := actor.Priority(i % actor.NumPriorities)
				if prio == actor.Critical {
					// keep critical traffic rare
					prio = actor.Normal
				}

				if b.cfg.AskEvery > 0 && i%b.cfg.AskEvery == 0 {
					h, ok := group.Route(key)
					if !ok {
						return actor.ErrNoHandle
					}
					askCtx, askCancel := context.WithTimeout(egCtx, b.cfg.AskTimeout)
					t0 := time.Now()
					_, err := actor.Ask(askCtx, h, total, actor.High)
					askCancel()
					asks.Add(1)
					if err != nil {
						askFailed.Add(1)
						continue
					}
					local = append(local, time.Since(t0))
					continue
				}

				if err := group.Send(key, work{prio: prio}, prio); err != nil {
					rejected.Add(1)
					continue
				}
				sent.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	for _, r := range resenders {
		r.Close()
		res.Resent += r.Sent()
	}

	// drain: a barrier per member proves everything sent so far was dequeued
	for _, name := range group.Names() {
		h, ok := group.Get(name)
		if !ok {
			continue
		}
		n, err := actor.Ask(ctx, h, total, actor.Low)
		if err != nil {
			return Result{}, fmt.Errorf("failed to drain %s: %w", name, err)
		}
		res.Processed += n
	}

	res.Elapsed = time.Since(start)
	res.Sent = sent.Load()
	res.Rejected = rejected.Load()
	res.Asks = asks.Load()
	res.AskFailed = askFailed.Load()
	slices.Sort(res.latencies)

	return res, nil
}
