package main

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pthm/hxview"
)

func TestStore(t *testing.T) {
	s := NewStore()

	var ids []string
	for _, todo := range s.List("") {
		ids = append(ids, todo.ID)
	}
	if diff := cmp.Diff([]string{"todo-4", "todo-3", "todo-2", "todo-1"}, ids); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	if !s.Toggle("todo-2") {
		t.Fatal("Toggle(todo-2) = false")
	}
	if s.Toggle("todo-9") {
		t.Error("Toggle(todo-9) = true, want false")
	}
	if got := s.Stats(); got != (Stats{Total: 4, Done: 1, Open: 3}) {
		t.Errorf("Stats() = %+v", got)
	}
	if done := s.List("done"); len(done) != 1 || done[0].ID != "todo-2" {
		t.Errorf("List(done) = %+v", done)
	}
	if open := s.List("open"); len(open) != 3 {
		t.Errorf("List(open) len = %d, want 3", len(open))
	}
}

func newTestSite() (*hxview.Site, *Store) {
	reg := hxview.NewRegistry()
	registerViews(reg)
	store := NewStore()
	return newSite(reg, store), store
}

func TestSitePages(t *testing.T) {
	site, store := newTestSite()
	store.Toggle("todo-2")

	tests := []struct {
		name       string
		target     string
		wantStatus int
		want       []string
	}{
		{"list", "/", http.StatusOK, []string{
			"<title>Todos</title>",
			`<a href="/" class="active">All</a>`,
			"<p>3 open, 1 done</p>",
			`<li class="done"><a href="/task/todo-2">Review PR #123</a></li>`,
		}},
		{"filtered", "/?status=done", http.StatusOK, []string{
			`<a href="/?status=done" class="active">Done</a>`,
			"Review PR #123",
		}},
		{"detail", "/task/todo-1", http.StatusOK, []string{
			"<title>Buy groceries</title>",
			"<li>personal</li>",
			"Mark done",
		}},
		{"missing task", "/task/todo-9", http.StatusNotFound, []string{hxview.FallbackPrefix}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := hxview.TestGet(site, tt.target)
			if !result.HasStatus(tt.wantStatus) {
				t.Fatalf("StatusCode = %d, want %d: %s", result.StatusCode, tt.wantStatus, result.HTML)
			}
			if !result.HTMLContainsAll(tt.want...) {
				t.Errorf("HTML = %s, want to contain %v", result.HTML, tt.want)
			}
		})
	}
}

func TestSiteShellWrapsPage(t *testing.T) {
	site, _ := newTestSite()

	result := hxview.TestGet(site, "/?status=open")
	if !result.HTMLInOrder(`<div class="app"><nav>`, "<main>", `<ul class="todos">`, "</main></div>") {
		t.Errorf("shell does not wrap the list: %s", result.HTML)
	}
	if result.HTMLContains("Review PR #123</a></li>") && result.HTMLContains(`class="done"><a`) {
		t.Error("open filter rendered a done todo")
	}
}
