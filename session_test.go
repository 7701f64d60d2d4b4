package hxview

import (
	"context"
	"errors"
	"testing"

	"github.com/pthm/hxview/lib/dom"
)

func TestSessionHotUpdateRemounts(t *testing.T) {
	reg := hydrateRegistry()
	doc, target, _ := serverDocument(t, hydratePage(), reg)

	src := newFakeSource()
	reloads := 0
	sess, err := NewSession(context.Background(), reg, SessionConfig{
		Document: doc,
		Loader:   MapLoader{"/views/shell.js": wrapView("article")},
		Source:   src,
		Reload:   func() { reloads++ },
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !sess.Instance().(*RenderedInstance).Claimed {
		t.Error("initial hydration should claim server markup")
	}

	src.emit("hot", `{"scripts":["/views/shell.js"]}`)
	waitIdle(t, sess.Queue)

	if got := innerHTML(t, target); got != "<article><p>hello</p></article>" {
		t.Errorf("target = %s, want remounted shell", got)
	}
	if got := sess.Registry.Version("/views/shell.js"); got != 2 {
		t.Errorf("Version() = %d, want 2", got)
	}

	src.emit("hot", `{"reload":true}`)
	if reloads != 1 {
		t.Errorf("reloads = %d, want 1", reloads)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !src.closed {
		t.Error("source not closed")
	}
	if src.subscribers("hot") != 0 {
		t.Error("hot subscription left after Close()")
	}
}

func TestSessionWithoutSource(t *testing.T) {
	reg := hydrateRegistry()
	doc, _, _ := serverDocument(t, hydratePage(), reg)

	sess, err := NewSession(context.Background(), reg, SessionConfig{Document: doc})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if sess.Hot != nil {
		t.Error("Hot client created without a source")
	}
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestSessionErrors(t *testing.T) {
	if _, err := NewSession(context.Background(), NewRegistry(), SessionConfig{}); !errors.Is(err, ErrNoTarget) {
		t.Errorf("NewSession() error = %v, want %v", err, ErrNoTarget)
	}

	doc, err := dom.Parse("<html><body><p>no target</p></body></html>")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	sess, err := NewSession(context.Background(), NewRegistry(), SessionConfig{Document: doc})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := sess.Start(context.Background()); !errors.Is(err, ErrNoTarget) {
		t.Errorf("Start() error = %v, want %v", err, ErrNoTarget)
	}
}
