package hxview

import (
	"context"
	"fmt"
	"sync"

	"github.com/pthm/hxview/internal/observability"
	"github.com/pthm/hxview/lib/query"
	"github.com/rs/zerolog"
)

// Module is a loaded replacement script.
type Module struct {
	// URL is the module's own resolved URL. Its path is the registry key.
	// When empty, the requested script path is used.
	URL     string
	Default Compiled
}

// Loader fetches and evaluates a script.
type Loader interface {
	Import(ctx context.Context, script string) (Module, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, script string) (Module, error)

func (f LoaderFunc) Import(ctx context.Context, script string) (Module, error) {
	return f(ctx, script)
}

// MapLoader serves modules from a fixed map keyed by script path.
type MapLoader map[string]Compiled

func (m MapLoader) Import(_ context.Context, script string) (Module, error) {
	c, ok := m[script]
	if !ok {
		return Module{}, fmt.Errorf("%w: %s", ErrNotFound, script)
	}
	return Module{URL: script, Default: c}, nil
}

// Update is delivered to listeners after each registration.
type Update struct {
	Path   string
	Module Module
}

// Listener observes registry updates made by a ReloadQueue.
type Listener func(Update)

// QueueState is the state of a ReloadQueue.
type QueueState int

const (
	Idle QueueState = iota
	Draining
)

func (s QueueState) String() string {
	if s == Draining {
		return "draining"
	}
	return "idle"
}

// ReloadQueue applies hot updates to a registry one batch at a time.
//
// Batches are drained FIFO by a single goroutine. Work enqueued while a
// drain is running is picked up by that drain, so two drains never run at
// once. Scripts in a batch are imported in order, each registered before
// the next begins.
type ReloadQueue struct {
	Registry *Registry
	Loader   Loader
	// Location resolves relative module URLs.
	Location query.Location
	Logger   zerolog.Logger

	ctx context.Context

	mu        sync.Mutex
	pending   [][]string
	draining  bool
	idle      chan struct{}
	listeners []listenerEntry
	nextID    uint64
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// NewReloadQueue creates an idle queue. ctx bounds every import the queue
// performs.
func NewReloadQueue(ctx context.Context, reg *Registry, loader Loader) *ReloadQueue {
	idle := make(chan struct{})
	close(idle)
	return &ReloadQueue{
		Registry: reg,
		Loader:   loader,
		Logger:   zerolog.Nop(),
		ctx:      ctx,
		idle:     idle,
	}
}

// Subscribe registers fn to run after every registration. Listeners run
// synchronously on the drain goroutine in subscription order. The returned
// function removes fn.
func (q *ReloadQueue) Subscribe(fn Listener) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	id := q.nextID
	q.listeners = append(q.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		for i, l := range q.listeners {
			if l.id == id {
				q.listeners = append(q.listeners[:i:i], q.listeners[i+1:]...)
				return
			}
		}
	}
}

// Enqueue schedules a batch of scripts. It starts a drain if the queue is
// idle and returns immediately.
func (q *ReloadQueue) Enqueue(scripts ...string) {
	if len(scripts) == 0 {
		return
	}
	batch := append([]string(nil), scripts...)

	q.mu.Lock()
	q.pending = append(q.pending, batch)
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.idle = make(chan struct{})
	q.mu.Unlock()

	go q.drain()
}

// State reports whether a drain is running.
func (q *ReloadQueue) State() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.draining {
		return Draining
	}
	return Idle
}

// Wait blocks until the queue is idle or ctx is done.
func (q *ReloadQueue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ReloadQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			close(q.idle)
			q.mu.Unlock()
			return
		}
		batch := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.apply(batch)
	}
}

// apply imports a batch in order. The first failure skips the rest of it.
func (q *ReloadQueue) apply(batch []string) {
	for i, script := range batch {
		path, mod, err := q.load(script)
		if err != nil {
			observability.RecordHotUpdate(false)
			q.Logger.Error().Err(err).
				Str("script", script).
				Int("skipped", len(batch)-i-1).
				Msg("hot update failed")
			return
		}

		q.Registry.Set(path, mod.Default)
		observability.RecordHotUpdate(true)
		q.Logger.Info().Str("script", script).Str("path", path).Msg("hot update applied")

		q.notify(Update{Path: path, Module: mod})
	}
}

func (q *ReloadQueue) load(script string) (string, Module, error) {
	mod, err := q.Loader.Import(q.ctx, script)
	if err != nil {
		return "", Module{}, fmt.Errorf("%w: %s: %w", ErrImportFailed, script, err)
	}
	if mod.Default == nil {
		return "", Module{}, fmt.Errorf("%w: %s", ErrMissingModule, script)
	}

	src := mod.URL
	if src == "" {
		src = script
	}
	u, err := query.ParseURL(src, q.Location)
	if err != nil {
		return "", Module{}, fmt.Errorf("%w: %s: %w", ErrImportFailed, script, err)
	}
	return u.Path, mod, nil
}

func (q *ReloadQueue) notify(u Update) {
	q.mu.Lock()
	listeners := make([]listenerEntry, len(q.listeners))
	copy(listeners, q.listeners)
	q.mu.Unlock()

	for _, l := range listeners {
		l.fn(u)
	}
}
