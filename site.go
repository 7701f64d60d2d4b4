package hxview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pthm/hxview/lib/query"
	"github.com/rs/zerolog"
)

// Request is what a PageFunc receives for a matched route.
type Request struct {
	Path   string
	Params map[string]string
	Query  query.Values
}

// PageFunc builds the page for a request. Returning an error wrapping
// ErrNotFound produces a 404 document.
type PageFunc func(ctx context.Context, req Request) (Page, error)

type route struct {
	pattern  string
	segments []string
	fn       PageFunc
}

// Site routes request paths to pages and composes them.
//
// Patterns are slash-separated segments; a segment written {name} captures
// one path segment and a final {name...} captures the rest:
//
//	site.Handle("/", home)
//	site.Handle("/blog/{slug}", post)
//	site.Handle("/docs/{path...}", docs)
type Site struct {
	Registry *Registry
	Composer *Composer
	Logger   zerolog.Logger

	routes []route
}

// NewSite creates a site rendering views from reg.
func NewSite(reg *Registry) *Site {
	return &Site{
		Registry: reg,
		Composer: NewComposer(),
		Logger:   zerolog.Nop(),
	}
}

// Handle registers fn for pattern. Routes are matched in registration
// order. Panics on a duplicate pattern.
func (s *Site) Handle(pattern string, fn PageFunc) {
	pattern = query.NormalizePath(pattern)
	for _, r := range s.routes {
		if r.pattern == pattern {
			panic(fmt.Sprintf("hxview: duplicate route %q", pattern))
		}
	}
	s.routes = append(s.routes, route{
		pattern:  pattern,
		segments: splitPath(pattern),
		fn:       fn,
	})
}

// Page registers a fixed page for pattern.
func (s *Site) Page(pattern string, page Page) {
	s.Handle(pattern, func(context.Context, Request) (Page, error) {
		return page, nil
	})
}

// Compose resolves the route for path, parses rawQuery and composes the
// page. Like Composer.Compose it always returns a document.
func (s *Site) Compose(ctx context.Context, path, rawQuery string) ComposedDocument {
	path = query.NormalizePath(path)

	values, err := query.Parse(rawQuery)
	if err != nil {
		s.Logger.Warn().Err(err).Str("route", path).Msg("bad query")
		return Fallback(http.StatusBadRequest, err.Error())
	}

	fn, params, ok := s.match(path)
	if !ok {
		return s.notFound(path)
	}

	page, err := fn(ctx, Request{Path: path, Params: params, Query: values})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.notFound(path)
		}
		s.Logger.Error().Err(err).Str("route", path).Msg("page failed")
		return Fallback(http.StatusInternalServerError, err.Error())
	}

	doc := s.Composer.Compose(ctx, page, s.Registry)
	if doc.Status == http.StatusNotFound && IsFallback(doc) {
		// The route matched but its page view is not registered.
		return s.notFound(path)
	}
	return doc
}

// ServeHTTP composes the page for the request path and writes it.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	doc := s.Compose(r.Context(), r.URL.Path, r.URL.RawQuery)
	if err := Render(w, r, doc); err != nil {
		s.Logger.Debug().Err(err).Str("route", r.URL.Path).Msg("write failed")
	}
}

func (s *Site) notFound(path string) ComposedDocument {
	return Fallback(http.StatusNotFound, fmt.Sprintf("no page for route %q", path))
}

func (s *Site) match(path string) (PageFunc, map[string]string, bool) {
	parts := splitPath(path)
	for _, r := range s.routes {
		if params, ok := matchSegments(r.segments, parts); ok {
			return r.fn, params, true
		}
	}
	return nil, nil, false
}

func matchSegments(pattern, parts []string) (map[string]string, bool) {
	params := make(map[string]string)
	for i, seg := range pattern {
		if name, ok := strings.CutSuffix(seg, "...}"); ok && strings.HasPrefix(name, "{") && i == len(pattern)-1 {
			params[name[1:]] = strings.Join(parts[min(i, len(parts)):], "/")
			return params, true
		}
		if i >= len(parts) {
			return nil, false
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			params[seg[1:len(seg)-1]] = parts[i]
			continue
		}
		if seg != parts[i] {
			return nil, false
		}
	}
	if len(parts) != len(pattern) {
		return nil, false
	}
	return params, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
