package hxview

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/pthm/hxview/internal/observability"
	"github.com/rs/zerolog"
)

// FallbackPrefix starts the body of every fallback document.
const FallbackPrefix = "fallback error: "

// ComposedDocument is the result of composing a page.
type ComposedDocument struct {
	Status int
	HTML   string
	// Head and CSS hold the collected fragments in document order: page
	// first, then each frame, then client injections, then the layout.
	Head []string
	CSS  []string
	// State is the serialized client state, empty when the page has no
	// client script.
	State string
}

// Fallback builds the plain document returned when composition cannot
// produce a page.
func Fallback(status int, message string) ComposedDocument {
	return ComposedDocument{Status: status, HTML: FallbackPrefix + message}
}

// Composer renders pages into documents.
type Composer struct {
	// Context is merged under every view's own context.
	Context Context
	Logger  zerolog.Logger
}

// NewComposer creates a composer with a no-op logger.
func NewComposer() *Composer {
	return &Composer{Logger: zerolog.Nop()}
}

// Compose renders page against reg. It never fails: a missing page view
// yields a 404 fallback document, and a render failure yields the page's
// error view (or a 500 fallback when that fails too).
func (c *Composer) Compose(ctx context.Context, page Page, reg *Registry) ComposedDocument {
	start := time.Now()
	doc := c.compose(ctx, page, reg)
	observability.RecordComposition(doc.Status, time.Since(start))
	return doc
}

func (c *Composer) compose(ctx context.Context, page Page, reg *Registry) ComposedDocument {
	if err := page.Validate(); err != nil {
		c.Logger.Error().Err(err).Str("page", page.Key).Msg("invalid page")
		return Fallback(http.StatusInternalServerError, err.Error())
	}

	if _, err := resolve(page.View, reg); err != nil {
		c.Logger.Warn().Err(err).Str("page", page.Key).Msg("page view missing")
		return Fallback(http.StatusNotFound, err.Error())
	}

	doc, err := c.render(ctx, page, reg)
	if err == nil {
		return doc
	}
	c.Logger.Error().Err(err).Str("page", page.Key).Msg("compose failed")

	if page.Error != nil {
		doc, errErr := c.renderError(ctx, page, reg, err)
		if errErr == nil {
			return doc
		}
		c.Logger.Error().Err(errErr).Str("page", page.Key).Msg("error view failed")
	}
	return Fallback(http.StatusInternalServerError, err.Error())
}

// render nests page → frames → layout.
func (c *Composer) render(ctx context.Context, page Page, reg *Registry) (ComposedDocument, error) {
	// Fragments are collected outermost-first and reversed at the end so
	// the outer layers' declarations land last.
	var heads, css []string
	collect := func(r RenderResult) {
		if r.Head != "" {
			heads = prepend(heads, r.Head)
		}
		if r.CSS != "" {
			css = prepend(css, r.CSS)
		}
	}

	out, err := c.renderView(ctx, page.View, reg, nil)
	if err != nil {
		return ComposedDocument{}, err
	}
	collect(out)
	body := out.HTML

	for _, frame := range page.Frames {
		out, err := c.renderView(ctx, frame, reg, Slots{StaticSlot(SlotDefault, body)})
		if err != nil {
			return ComposedDocument{}, err
		}
		collect(out)
		body = out.HTML
	}

	var state string
	if page.Client != "" {
		state, err = NewState(page).Encode()
		if err != nil {
			return ComposedDocument{}, fmt.Errorf("hxview: encode state: %w", err)
		}
		heads = prepend(heads, stateScript(state))
		heads = prepend(heads, moduleScript(page.Client))
	}

	reverse(heads)
	reverse(css)

	doc, err := c.wrap(ctx, page.Layout, reg, body, heads, css)
	if err != nil {
		return ComposedDocument{}, err
	}
	doc.State = state
	return doc, nil
}

// renderError renders the error view in place of the page, still wrapped
// by the layout.
func (c *Composer) renderError(ctx context.Context, page Page, reg *Registry, cause error) (ComposedDocument, error) {
	ev := *page.Error
	props := Props{}
	for k, v := range ev.Props {
		props[k] = v
	}
	props["status"] = http.StatusInternalServerError
	props["message"] = cause.Error()
	ev.Props = props

	out, err := c.renderView(ctx, ev, reg, nil)
	if err != nil {
		return ComposedDocument{}, err
	}
	var heads, css []string
	if out.Head != "" {
		heads = []string{out.Head}
	}
	if out.CSS != "" {
		css = []string{out.CSS}
	}

	doc, err := c.wrap(ctx, page.Layout, reg, out.HTML, heads, css)
	if err != nil && page.Layout != nil {
		doc, err = c.wrap(ctx, nil, reg, out.HTML, heads, css)
	}
	if err != nil {
		return ComposedDocument{}, err
	}
	doc.Status = http.StatusInternalServerError
	return doc, nil
}

// wrap renders the layout around body. heads and css are in document
// order.
func (c *Composer) wrap(ctx context.Context, layout *View, reg *Registry, body string, heads, css []string) (ComposedDocument, error) {
	lv := View{Key: "layout", Component: BuiltinLayout}
	if layout != nil {
		lv = *layout
	}

	var style string
	if len(css) > 0 {
		style = "<style>" + strings.Join(css, "\n") + "</style>"
	}
	slots := Slots{
		StaticSlot(SlotDefault, `<div id="`+TargetID+`">`+body+`</div>`),
		StaticSlot(SlotHead, strings.Join(heads, "")),
		StaticSlot(SlotStyle, style),
	}

	out, err := c.renderView(ctx, lv, reg, slots)
	if err != nil {
		return ComposedDocument{}, err
	}

	document := out.HTML
	if out.Head != "" {
		document = injectHead(document, out.Head)
		heads = append(heads, out.Head)
	}
	if out.CSS != "" {
		document = injectHead(document, "<style>"+out.CSS+"</style>")
		css = append(css, out.CSS)
	}

	return ComposedDocument{
		Status: http.StatusOK,
		HTML:   document,
		Head:   heads,
		CSS:    css,
	}, nil
}

func (c *Composer) renderView(ctx context.Context, v View, reg *Registry, slots Slots) (RenderResult, error) {
	comp, err := resolve(v, reg)
	if err != nil {
		return RenderResult{}, err
	}
	out, err := comp.Render(ctx, nonNil(v.Props), Scope{
		Slots:   slots,
		Context: c.Context.Merge(v.Context),
	})
	if err != nil {
		return RenderResult{}, fmt.Errorf("hxview: render %q: %w", v.Key, err)
	}
	return out, nil
}

func stateScript(state string) string {
	return `<script type="application/json" id="` + StateID + `">` + state + `</script>`
}

func moduleScript(src string) string {
	return `<script type="module" async src="` + html.EscapeString(src) + `"></script>`
}

// injectHead inserts fragment before the closing head tag, or prepends it
// when the document has none.
func injectHead(document, fragment string) string {
	i := strings.Index(strings.ToLower(document), "</head>")
	if i < 0 {
		return fragment + document
	}
	return document[:i] + fragment + document[i:]
}

func prepend(list []string, s string) []string {
	return append([]string{s}, list...)
}

func reverse(list []string) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
}
