package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codewandler/prioactor/core/sf"
	"github.com/codewandler/prioactor/internal/hrw"
)

var ErrGroupClosed = errors.New("actor group closed")

// Factory creates the behavior for the group member called name.
type Factory func(name string) (Behavior, error)

type GroupOptions struct {
	// Seed personalises key routing, so two groups with the same members can
	// still spread keys differently.
	Seed    string
	Context context.Context
	Logger  *slog.Logger
	Metrics Metrics
	// Caller is passed to every member as its CallerHandle.
	Caller Handle
}

// Group owns a set of named actors. Members are launched on first use and
// keys are spread over them with rendezvous hashing, so a key keeps hitting
// the same member for as long as the member set does not change.
type Group struct {
	opts GroupOptions
	log  *slog.Logger

	launching *sf.Singleflight[Actor]

	mu      sync.RWMutex
	members map[string]*Actor
	names   []string
	closed  bool
}

func NewGroup(opts GroupOptions) *Group {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics()
	}
	return &Group{
		opts:      opts,
		log:       opts.Logger,
		launching: sf.New[Actor](),
		members:   make(map[string]*Actor),
	}
}

// GetOrLaunch returns the handle of member name, launching it with factory
// if it does not run yet. Concurrent calls for the same name launch once.
func (g *Group) GetOrLaunch(name string, factory Factory) (Handle, error) {
	if h, ok := g.Get(name); ok {
		return h, nil
	}

	a, err := g.launching.Do(name, func() (*Actor, error) {
		g.mu.RLock()
		existing, ok := g.members[name]
		closed := g.closed
		g.mu.RUnlock()
		if closed {
			return nil, ErrGroupClosed
		}
		if ok {
			return existing, nil
		}

		b, err := factory(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create behavior for %s: %w", name, err)
		}

		a := New(b, Options{
			Name:    name,
			Context: g.opts.Context,
			Logger:  g.log,
			Caller:  g.opts.Caller,
			Metrics: g.opts.Metrics,
		})
		if _, err := a.Launch(); err != nil {
			return nil, err
		}

		g.mu.Lock()
		if g.closed {
			g.mu.Unlock()
			_ = a.Close(context.Background())
			return nil, ErrGroupClosed
		}
		g.members[name] = a
		g.names = append(g.names, name)
		slices.Sort(g.names)
		g.mu.Unlock()

		go g.watch(name, a)

		return a, nil
	})
	if err != nil {
		return Handle{}, err
	}
	return a.Self(), nil
}

// Get returns the handle of a running member.
func (g *Group) Get(name string) (Handle, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	a, ok := g.members[name]
	if !ok {
		return Handle{}, false
	}
	return a.Self(), true
}

// Names returns the sorted member names.
func (g *Group) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.names)
}

func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// Route picks the member responsible for key.
func (g *Group) Route(key string) (Handle, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	name, ok := hrw.Best(key, g.names, g.opts.Seed)
	if !ok {
		return Handle{}, false
	}
	return g.members[name].Self(), true
}

// Send posts msg to the member responsible for key.
func (g *Group) Send(key string, msg Message, priority Priority) error {
	h, ok := g.Route(key)
	if !ok {
		return fmt.Errorf("no member for key %q: %w", key, ErrNoHandle)
	}
	return h.Enqueue(msg, priority)
}

// Remove stops member name and waits for it to exit.
func (g *Group) Remove(ctx context.Context, name string) error {
	g.mu.Lock()
	a, ok := g.members[name]
	g.forgetLocked(name)
	g.mu.Unlock()

	if !ok {
		return nil
	}
	return a.Close(ctx)
}

// Close stops every member concurrently and waits for all of them.
func (g *Group) Close(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	members := make([]*Actor, 0, len(g.members))
	for _, a := range g.members {
		members = append(members, a)
	}
	g.members = make(map[string]*Actor)
	g.names = nil
	g.mu.Unlock()

	eg, ctx := errgroup.WithContext(ctx)
	for _, a := range members {
		eg.Go(func() error {
			if err := a.Close(ctx); err != nil {
				return fmt.Errorf("failed to close %s: %w", a.ID(), err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// watch drops a member that stopped on its own.
func (g *Group) watch(name string, a *Actor) {
	<-a.Done()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.members[name] == a {
		g.forgetLocked(name)
		g.log.Debug("group member stopped", slog.String("member", name))
	}
}

func (g *Group) forgetLocked(name string) {
	delete(g.members, name)
	if i, ok := slices.BinarySearch(g.names, name); ok {
		g.names = slices.Delete(g.names, i, i+1)
	}
}
