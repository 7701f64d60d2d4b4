package hxview

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pthm/hxview/lib/dom"
	"github.com/pthm/hxview/lib/query"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// SessionConfig configures a client session.
type SessionConfig struct {
	// Document is the parsed page the session hydrates. It must contain
	// the target element; the state element is optional.
	Document *html.Node
	// Loader imports replacement scripts for hot updates.
	Loader Loader
	// Source delivers hot payloads. Nil disables hot reload.
	Source EventSource
	// Reload is called for reload payloads.
	Reload func()
	// Location resolves relative module URLs.
	Location query.Location
	// Entry is the chain hydrated when the embedded state has none.
	Entry  State
	Logger zerolog.Logger
}

// Session is one running client page: a registry, the hydrator mounting
// the page from it, and the hot-reload pipeline that updates it.
type Session struct {
	ID       uuid.UUID
	Registry *Registry
	Hydrator *Hydrator
	Queue    *ReloadQueue
	Hot      *HotClient

	doc    *html.Node
	logger zerolog.Logger

	mu       sync.Mutex
	instance Instance
	unlisten func()
}

// NewSession wires a session around reg. ctx bounds the session's hot
// imports.
func NewSession(ctx context.Context, reg *Registry, cfg SessionConfig) (*Session, error) {
	if cfg.Document == nil {
		return nil, fmt.Errorf("%w: no document", ErrNoTarget)
	}
	if cfg.Loader == nil {
		cfg.Loader = MapLoader{}
	}

	id := uuid.New()
	logger := cfg.Logger.With().Str("session", id.String()).Logger()

	h := NewHydrator(reg)
	h.Entry = cfg.Entry
	h.Logger = logger

	q := NewReloadQueue(ctx, reg, cfg.Loader)
	q.Location = cfg.Location
	q.Logger = logger

	s := &Session{
		ID:       id,
		Registry: reg,
		Hydrator: h,
		Queue:    q,
		doc:      cfg.Document,
		logger:   logger,
	}
	if cfg.Source != nil {
		s.Hot = NewHotClient(cfg.Source, q, cfg.Reload)
		s.Hot.Logger = logger
	}
	return s, nil
}

// Start hydrates the document, then re-hydrates it after every hot
// registration and begins listening for hot payloads.
func (s *Session) Start(ctx context.Context) error {
	if err := s.hydrate(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.unlisten == nil {
		s.unlisten = s.Queue.Subscribe(func(u Update) {
			if err := s.hydrate(ctx); err != nil {
				s.logger.Error().Err(err).Str("path", u.Path).Msg("re-hydration failed")
			}
		})
	}
	s.mu.Unlock()

	if s.Hot != nil {
		s.Hot.Start()
	}
	return nil
}

// Instance returns the most recently mounted instance.
func (s *Session) Instance() Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instance
}

// Close ends hot reload for the session.
func (s *Session) Close() error {
	s.mu.Lock()
	unlisten := s.unlisten
	s.unlisten = nil
	s.mu.Unlock()
	if unlisten != nil {
		unlisten()
	}
	if s.Hot != nil {
		return s.Hot.Close()
	}
	return nil
}

func (s *Session) hydrate(ctx context.Context) error {
	target := dom.ByID(s.doc, TargetID)
	if target == nil {
		return fmt.Errorf("%w: #%s", ErrNoTarget, TargetID)
	}
	inst, err := s.Hydrator.Hydrate(ctx, target, dom.ByID(s.doc, StateID))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.instance = inst
	s.mu.Unlock()
	return nil
}
