package hxview

import (
	"context"
	"fmt"
)

// Props are the JSON-compatible values a view is rendered with. They are
// serialized into the page for hydration.
type Props map[string]any

// Context carries server-side values to a view. It is never serialized.
type Context map[string]any

// Merge returns a new Context holding c overlaid with child.
func (c Context) Merge(child Context) Context {
	out := make(Context, len(c)+len(child))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}

// RenderResult is the output of rendering a single view.
type RenderResult struct {
	HTML string
	Head string
	CSS  string
}

// Scope is what a view receives from the layer composing it: its slots
// and its context, passed explicitly at every composition boundary.
type Scope struct {
	Slots   Slots
	Context Context
}

// Compiled is the compiled form of a view, produced by a template
// compiler. Render may invoke any slot any number of times; each slot
// produces its content at most once.
type Compiled interface {
	Render(ctx context.Context, props Props, scope Scope) (RenderResult, error)
}

// CompiledFunc adapts a function to Compiled.
type CompiledFunc func(ctx context.Context, props Props, scope Scope) (RenderResult, error)

func (f CompiledFunc) Render(ctx context.Context, props Props, scope Scope) (RenderResult, error) {
	return f(ctx, props, scope)
}

// View is one renderable layer of a page.
type View struct {
	// Key identifies the view within its page and keys its props in the
	// serialized state.
	Key string
	// Path is the asset path the implementation is registered under.
	Path string

	Props   Props
	Context Context

	// Component overrides the registry lookup by Path.
	Component Compiled
}

// Page is a view plus the layers wrapped around it.
//
// Frames are listed innermost-first: Frames[0] wraps the page, Frames[1]
// wraps Frames[0], and so on. Layout, when set, wraps the outermost frame
// and produces the document shell; otherwise a minimal built-in layout is
// used. Error renders in place of the page when composition fails.
type Page struct {
	View
	Frames []View
	Layout *View
	Error  *View
	// Client is the asset path of the client entry script. When empty no
	// state or script is embedded.
	Client string
}

// Validate checks that every key in the page is set and unique. A missing
// key reports ErrEmptyKey, a repeated one ErrDuplicateKey.
func (p Page) Validate() error {
	seen := make(map[string]string)
	check := func(role string, v View) error {
		if v.Key == "" {
			return fmt.Errorf("%w: %s", ErrEmptyKey, role)
		}
		if prev, ok := seen[v.Key]; ok {
			return fmt.Errorf("%w: %q used by %s and %s", ErrDuplicateKey, v.Key, prev, role)
		}
		seen[v.Key] = role
		return nil
	}

	if err := check("page", p.View); err != nil {
		return err
	}
	for i, f := range p.Frames {
		if err := check(fmt.Sprintf("frame %d", i), f); err != nil {
			return err
		}
	}
	if p.Layout != nil {
		if err := check("layout", *p.Layout); err != nil {
			return err
		}
	}
	if p.Error != nil {
		if err := check("error", *p.Error); err != nil {
			return err
		}
	}
	return nil
}

// resolve returns the implementation of v.
func resolve(v View, reg *Registry) (Compiled, error) {
	if v.Component != nil {
		return v.Component, nil
	}
	if reg != nil {
		if c, ok := reg.Get(v.Path); ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q (%s)", ErrNotFound, v.Key, v.Path)
}
