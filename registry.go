package hxview

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pthm/hxview/lib/query"
)

// Registry maps asset paths to the currently active implementation of each
// view.
//
// Paths are normalized with query.NormalizePath so that a key registered
// at startup matches the URL path a hot update is loaded from. After
// startup the only writer is the ReloadQueue; readers take snapshots or go
// through Get.
type Registry struct {
	mu       sync.RWMutex
	views    map[string]Compiled
	versions map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		views:    make(map[string]Compiled),
		versions: make(map[string]int),
	}
}

// Register adds an implementation at startup.
// Panics if the path is empty or already registered.
func (r *Registry) Register(path string, c Compiled) {
	if path == "" {
		panic("hxview: cannot register a view without a path")
	}
	if c == nil {
		panic(fmt.Sprintf("hxview: nil view for %q", path))
	}
	key := query.NormalizePath(path)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.views[key]; exists {
		panic(fmt.Sprintf("hxview: path collision for %q", key))
	}
	r.views[key] = c
	r.versions[key] = 1
}

// Set installs c under path, replacing any previous implementation.
func (r *Registry) Set(path string, c Compiled) {
	key := query.NormalizePath(path)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[key] = c
	r.versions[key]++
}

// Get returns the implementation registered under path.
func (r *Registry) Get(path string) (Compiled, bool) {
	if path == "" {
		return nil, false
	}
	key := query.NormalizePath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.views[key]
	return c, ok
}

// Version returns how many times path has been installed; 0 if never.
func (r *Registry) Version(path string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.versions[query.NormalizePath(path)]
}

// Snapshot returns a copy of the current path → implementation mapping.
func (r *Registry) Snapshot() map[string]Compiled {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Compiled, len(r.views))
	for k, v := range r.views {
		out[k] = v
	}
	return out
}

// Paths returns the registered paths in sorted order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.views))
	for k := range r.views {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}
