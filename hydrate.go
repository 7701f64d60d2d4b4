package hxview

import (
	"context"
	"fmt"
	"sync"

	"github.com/pthm/hxview/lib/dom"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// MountOptions describe how a component instance is constructed.
type MountOptions struct {
	// Target is the element the instance is attached to. Nil constructs
	// the instance inline: its output is slotted by the next layer and it
	// never touches the document directly.
	Target *html.Node
	// Hydrate reuses markup already present in Target instead of
	// recreating it.
	Hydrate bool
	Props   Props
	Scope   Scope
}

// Instance is a constructed component.
type Instance interface {
	// HTML returns the instance's current markup.
	HTML() string
	// Destroy detaches the instance from its target, if any.
	Destroy()
}

// Mounter is implemented by views that construct client instances
// themselves. Views that do not implement it are mounted by rendering
// them and claiming the matching markup.
type Mounter interface {
	Mount(ctx context.Context, opts MountOptions) (Instance, error)
}

// Mount constructs an instance of c.
func Mount(ctx context.Context, c Compiled, opts MountOptions) (Instance, error) {
	if m, ok := c.(Mounter); ok {
		return m.Mount(ctx, opts)
	}
	return mountRendered(ctx, c, opts)
}

// RenderedInstance is the instance produced for views without a Mounter.
type RenderedInstance struct {
	markup string
	target *html.Node
	// Claimed is true when hydration reused the existing markup.
	Claimed bool
}

func (i *RenderedInstance) HTML() string { return i.markup }

func (i *RenderedInstance) Destroy() {
	if i.target != nil {
		dom.Clear(i.target)
		i.target = nil
	}
}

func mountRendered(ctx context.Context, c Compiled, opts MountOptions) (Instance, error) {
	out, err := c.Render(ctx, opts.Props, opts.Scope)
	if err != nil {
		return nil, err
	}
	inst := &RenderedInstance{markup: out.HTML, target: opts.Target}
	if opts.Target == nil {
		return inst, nil
	}

	if opts.Hydrate && dom.HasChildren(opts.Target) {
		existing, err := dom.InnerHTML(opts.Target)
		if err != nil {
			return nil, err
		}
		want, err := dom.Normalize(out.HTML, opts.Target)
		if err != nil {
			return nil, err
		}
		if existing == want {
			inst.Claimed = true
			return inst, nil
		}
		zerolog.Ctx(ctx).Warn().
			Str("target", dom.Attr(opts.Target, "id")).
			Msg("hydration mismatch, replacing server markup")
	}

	if err := dom.SetInnerHTML(opts.Target, out.HTML); err != nil {
		return nil, err
	}
	return inst, nil
}

// Hydrator rebuilds the composed view tree on the client over the markup
// the server produced.
type Hydrator struct {
	Registry *Registry
	// Entry is the chain used when the embedded state carries none.
	Entry   State
	Context Context
	Logger  zerolog.Logger

	mu      sync.Mutex
	mounted map[*html.Node]Instance
	stateEl *html.Node
	state   State
}

// NewHydrator creates a hydrator resolving views from reg.
func NewHydrator(reg *Registry) *Hydrator {
	return &Hydrator{
		Registry: reg,
		Logger:   zerolog.Nop(),
		mounted:  make(map[*html.Node]Instance),
	}
}

// Hydrate mounts the page chain onto target.
//
// The state element's text is read on the first call for that element and
// reused afterwards; a missing element or unreadable state degrades to
// empty props. The page and every frame except the outermost are built
// inline, each slotted as the default content of the next; the outermost
// is mounted onto target in hydrate mode. If target was hydrated before,
// the previous instance is destroyed and target cleared first.
func (h *Hydrator) Hydrate(ctx context.Context, target, stateEl *html.Node) (Instance, error) {
	if target == nil {
		return nil, ErrNoTarget
	}
	ctx = h.Logger.WithContext(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.readState(stateEl)
	chain := st
	if chain.Page.Key == "" {
		chain.Page, chain.Frames = h.Entry.Page, h.Entry.Frames
	}
	if chain.Page.Key == "" {
		return nil, ErrNoChain
	}

	layers := append([]Ref{chain.Page}, chain.Frames...)
	comps := make([]Compiled, len(layers))
	for i, ref := range layers {
		c, ok := h.Registry.Get(ref.Path)
		if !ok {
			return nil, fmt.Errorf("%w: %q (%s)", ErrNotFound, ref.Key, ref.Path)
		}
		comps[i] = c
	}

	if prev, ok := h.mounted[target]; ok {
		prev.Destroy()
		dom.Clear(target)
		delete(h.mounted, target)
	}

	var inner Instance
	for i, ref := range layers {
		opts := MountOptions{
			Props: st.PropsFor(ref.Key),
			Scope: Scope{Context: h.Context},
		}
		if inner != nil {
			opts.Scope.Slots = Slots{StaticSlot(SlotDefault, inner.HTML())}
		}
		if i == len(layers)-1 {
			opts.Target = target
			opts.Hydrate = true
		}

		inst, err := Mount(ctx, comps[i], opts)
		if err != nil {
			return nil, fmt.Errorf("hxview: mount %q: %w", ref.Key, err)
		}
		inner = inst
	}

	h.mounted[target] = inner
	h.Logger.Debug().Str("page", chain.Page.Key).Int("frames", len(chain.Frames)).Msg("hydrated")
	return inner, nil
}

// readState parses the state element once per element.
func (h *Hydrator) readState(el *html.Node) State {
	if el != nil && el == h.stateEl {
		return h.state
	}
	st := emptyState()
	if el != nil {
		parsed, err := DecodeState(dom.Text(el))
		if err != nil {
			h.Logger.Warn().Err(err).Msg("embedded state unreadable, using empty state")
		} else {
			st = parsed
		}
	} else {
		h.Logger.Warn().Msg("embedded state missing, using empty state")
	}
	h.stateEl, h.state = el, st
	return st
}
