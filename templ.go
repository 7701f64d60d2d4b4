package hxview

import (
	"bytes"
	"context"
	"io"

	"github.com/a-h/templ"
)

type scopeKey struct{}

// TemplOption configures a view built with Templ.
type TemplOption func(*templView)

// WithHead adds a head fragment rendered from the view's props.
func WithHead(fn func(props Props) templ.Component) TemplOption {
	return func(v *templView) { v.head = fn }
}

// WithCSS attaches a stylesheet fragment to every render of the view.
func WithCSS(css string) TemplOption {
	return func(v *templView) { v.css = css }
}

type templView struct {
	body func(props Props) templ.Component
	head func(props Props) templ.Component
	css  string
}

// Templ adapts a templ component constructor into a Compiled view.
//
// The default slot is handed to the component as its children, so a frame
// written in templ places the wrapped content with { children... }. The
// other slots and the view context are available through SlotComponent
// and ContextValue:
//
//	templ shell() {
//	    <nav>...</nav>
//	    <main>{ children... }</main>
//	}
//
//	reg.Register("/views/shell.js", hxview.Templ(func(hxview.Props) templ.Component {
//	    return shell()
//	}))
func Templ(fn func(props Props) templ.Component, opts ...TemplOption) Compiled {
	v := &templView{body: fn}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *templView) Render(ctx context.Context, props Props, scope Scope) (RenderResult, error) {
	ctx = context.WithValue(ctx, scopeKey{}, scope)
	if scope.Slots.Has(SlotDefault) {
		ctx = templ.WithChildren(ctx, SlotComponent(ctx, SlotDefault))
	}

	var out RenderResult
	var buf bytes.Buffer
	if err := v.body(props).Render(ctx, &buf); err != nil {
		return RenderResult{}, err
	}
	out.HTML = buf.String()

	if v.head != nil {
		buf.Reset()
		if err := v.head(props).Render(ctx, &buf); err != nil {
			return RenderResult{}, err
		}
		out.Head = buf.String()
	}
	out.CSS = v.css
	return out, nil
}

// ScopeFromContext returns the scope of the view being rendered.
func ScopeFromContext(ctx context.Context) Scope {
	s, _ := ctx.Value(scopeKey{}).(Scope)
	return s
}

// ContextValue returns a value from the view context of the view being
// rendered.
func ContextValue(ctx context.Context, key string) any {
	return ScopeFromContext(ctx).Context[key]
}

// SlotComponent returns a templ component writing the named slot of the
// view being rendered. A missing slot renders nothing.
func SlotComponent(ctx context.Context, name string) templ.Component {
	slots := ScopeFromContext(ctx).Slots
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		html, err := slots.Render(ctx, name)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	})
}

// BuiltinLayout is the layout used when a page has none: a bare document
// with a charset declaration, the head and style slots in <head> and the
// default slot in <body>.
var BuiltinLayout = Templ(func(Props) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8">`); err != nil {
			return err
		}
		if err := SlotComponent(ctx, SlotHead).Render(ctx, w); err != nil {
			return err
		}
		if err := SlotComponent(ctx, SlotStyle).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</head><body>`); err != nil {
			return err
		}
		if err := templ.GetChildren(ctx).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
})
