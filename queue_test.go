package hxview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pthm/hxview/lib/query"
)

// eventLog is a goroutine-safe ordered record of what happened.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func waitIdle(t *testing.T, q *ReloadQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func recordingLoader(log *eventLog) Loader {
	return LoaderFunc(func(_ context.Context, script string) (Module, error) {
		log.add("import:" + script)
		return Module{URL: script, Default: textView(script)}, nil
	})
}

func TestReloadQueueAppliesInOrder(t *testing.T) {
	var log eventLog
	reg := NewRegistry()
	q := NewReloadQueue(context.Background(), reg, recordingLoader(&log))
	q.Subscribe(func(u Update) {
		log.add("notify:" + u.Path)
	})

	if q.State() != Idle {
		t.Fatalf("State() = %v, want idle", q.State())
	}
	q.Enqueue("/a.js", "/b.js")
	waitIdle(t, q)

	want := []string{"import:/a.js", "notify:/a.js", "import:/b.js", "notify:/b.js"}
	if diff := cmp.Diff(want, log.list()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	for _, p := range []string{"/a.js", "/b.js"} {
		if reg.Version(p) != 1 {
			t.Errorf("Version(%s) = %d, want 1", p, reg.Version(p))
		}
	}
	if q.State() != Idle {
		t.Errorf("State() = %v, want idle", q.State())
	}
}

func TestReloadQueueListenerSeesRegistration(t *testing.T) {
	reg := NewRegistry()
	q := NewReloadQueue(context.Background(), reg, recordingLoader(&eventLog{}))

	var seen []int
	q.Subscribe(func(u Update) {
		seen = append(seen, reg.Version(u.Path))
	})
	q.Enqueue("/a.js")
	waitIdle(t, q)
	q.Enqueue("/a.js")
	waitIdle(t, q)

	if diff := cmp.Diff([]int{1, 2}, seen); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}
}

func TestReloadQueueSingleDrain(t *testing.T) {
	var (
		log     eventLog
		active  int32
		maxSeen int32
		started = make(chan string, 8)
		release = make(chan struct{})
	)
	loader := LoaderFunc(func(_ context.Context, script string) (Module, error) {
		n := atomic.AddInt32(&active, 1)
		defer atomic.AddInt32(&active, -1)
		for {
			m := atomic.LoadInt32(&maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
				break
			}
		}
		started <- script
		if script == "/a.js" {
			<-release
		}
		log.add(script)
		return Module{Default: textView("")}, nil
	})

	q := NewReloadQueue(context.Background(), NewRegistry(), loader)
	q.Enqueue("/a.js", "/b.js")

	select {
	case s := <-started:
		if s != "/a.js" {
			t.Fatalf("first import = %s, want /a.js", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first import never started")
	}

	q.Enqueue("/c.js", "/d.js")
	if q.State() != Draining {
		t.Errorf("State() = %v, want draining", q.State())
	}
	close(release)
	waitIdle(t, q)

	want := []string{"/a.js", "/b.js", "/c.js", "/d.js"}
	if diff := cmp.Diff(want, log.list()); diff != "" {
		t.Errorf("apply order mismatch (-want +got):\n%s", diff)
	}
	if got := atomic.LoadInt32(&maxSeen); got != 1 {
		t.Errorf("concurrent imports = %d, want 1", got)
	}
}

func TestReloadQueueConcurrentEnqueue(t *testing.T) {
	var log eventLog
	reg := NewRegistry()
	q := NewReloadQueue(context.Background(), reg, recordingLoader(&log))

	var wg sync.WaitGroup
	for _, s := range []string{"/a.js", "/b.js", "/c.js", "/d.js", "/e.js"} {
		wg.Add(1)
		go func(s string) {
			defer wg.Done()
			q.Enqueue(s)
		}(s)
	}
	wg.Wait()
	waitIdle(t, q)

	if got := len(log.list()); got != 5 {
		t.Errorf("imports = %d, want 5: %v", got, log.list())
	}
	if got := len(reg.Paths()); got != 5 {
		t.Errorf("registered = %d, want 5", got)
	}
}

func TestReloadQueueFailureSkipsRestOfBatch(t *testing.T) {
	reg := NewRegistry()
	loader := MapLoader{
		"/a.js": textView(""),
		"/c.js": textView(""),
		"/d.js": textView(""),
	}
	q := NewReloadQueue(context.Background(), reg, loader)

	var notified []string
	q.Subscribe(func(u Update) { notified = append(notified, u.Path) })

	q.Enqueue("/a.js", "/b.js", "/c.js")
	q.Enqueue("/d.js")
	waitIdle(t, q)

	if diff := cmp.Diff([]string{"/a.js", "/d.js"}, notified); diff != "" {
		t.Errorf("notified mismatch (-want +got):\n%s", diff)
	}
	if _, ok := reg.Get("/c.js"); ok {
		t.Error("/c.js registered after /b.js failed in the same batch")
	}
}

func TestReloadQueueModuleURLKey(t *testing.T) {
	reg := NewRegistry()
	loader := LoaderFunc(func(_ context.Context, script string) (Module, error) {
		switch script {
		case "abs":
			return Module{URL: "http://localhost:3000/views/card.js?v=2#x", Default: textView("")}, nil
		case "rel":
			return Module{URL: "views/list.js/", Default: textView("")}, nil
		}
		return Module{}, errors.New("unknown")
	})
	q := NewReloadQueue(context.Background(), reg, loader)
	q.Location = query.Location{Protocol: "http:", Host: "localhost:3000", Hostname: "localhost", Port: 3000}

	q.Enqueue("abs", "rel")
	waitIdle(t, q)

	if diff := cmp.Diff([]string{"/views/card.js", "/views/list.js"}, reg.Paths()); diff != "" {
		t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
	}
}

func TestReloadQueueMissingDefault(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	q := NewReloadQueue(context.Background(), reg, LoaderFunc(func(context.Context, string) (Module, error) {
		calls++
		return Module{URL: "/a.js"}, nil
	}))
	q.Subscribe(func(Update) { t.Error("listener called for a module without default export") })

	q.Enqueue("/a.js")
	waitIdle(t, q)

	if calls != 1 {
		t.Errorf("imports = %d, want 1", calls)
	}
	if len(reg.Paths()) != 0 {
		t.Errorf("Paths() = %v, want none", reg.Paths())
	}
}

func TestReloadQueueUnsubscribe(t *testing.T) {
	q := NewReloadQueue(context.Background(), NewRegistry(), recordingLoader(&eventLog{}))

	var first, second int
	unsub := q.Subscribe(func(Update) { first++ })
	q.Subscribe(func(Update) { second++ })

	q.Enqueue("/a.js")
	waitIdle(t, q)
	unsub()
	q.Enqueue("/b.js")
	waitIdle(t, q)

	if first != 1 || second != 2 {
		t.Errorf("calls = %d, %d, want 1, 2", first, second)
	}
}

func TestReloadQueueWaitHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	q := NewReloadQueue(context.Background(), NewRegistry(), LoaderFunc(func(context.Context, string) (Module, error) {
		<-release
		return Module{Default: textView("")}, nil
	}))

	if err := q.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() on idle queue error = %v", err)
	}

	q.Enqueue("/hung.js")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestQueueStateString(t *testing.T) {
	if Idle.String() != "idle" || Draining.String() != "draining" {
		t.Errorf("String() = %q, %q", Idle.String(), Draining.String())
	}
}
