package hxview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
)

// TestResult holds the result of composing or rendering for testing.
//
// Provides convenience methods for asserting on HTML content, collected
// head and style fragments, embedded state, and status codes.
type TestResult struct {
	HTML       string
	StatusCode int
	Headers    http.Header
	Head       []string
	CSS        []string
	State      string
}

// TestCompose composes page against reg and returns testable output.
//
//	result := hxview.TestCompose(page, reg)
//	if !result.HTMLContains("<h1>Hello</h1>") {
//	    t.Fatal("missing heading")
//	}
func TestCompose(page Page, reg *Registry) *TestResult {
	return TestComposeWithContext(context.Background(), page, reg)
}

// TestComposeWithContext composes page with a custom context.
func TestComposeWithContext(ctx context.Context, page Page, reg *Registry) *TestResult {
	doc := NewComposer().Compose(ctx, page, reg)
	return &TestResult{
		HTML:       doc.HTML,
		StatusCode: doc.Status,
		Headers:    make(http.Header),
		Head:       doc.Head,
		CSS:        doc.CSS,
		State:      doc.State,
	}
}

// TestRender renders a single compiled view with the given props and
// slots:
//
//	result, err := hxview.TestRender(card, hxview.Props{"title": "Hi"},
//	    hxview.StaticSlot(hxview.SlotDefault, "<p>body</p>"))
func TestRender(c Compiled, props Props, slots ...Slot) (*TestResult, error) {
	out, err := c.Render(context.Background(), nonNil(props), Scope{Slots: slots})
	if err != nil {
		return nil, err
	}
	r := &TestResult{
		HTML:       out.HTML,
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
	}
	if out.Head != "" {
		r.Head = []string{out.Head}
	}
	if out.CSS != "" {
		r.CSS = []string{out.CSS}
	}
	return r, nil
}

// TestGet serves a GET request for target through h, typically a Site or
// an adapter-mounted router.
//
//	result := hxview.TestGet(site, "/blog/hello?draft=1")
func TestGet(h http.Handler, target string) *TestResult {
	return NewTestRequest(http.MethodGet, target).Execute(h)
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HTMLInOrder checks that the substrings appear in the HTML in the given
// order without overlapping.
func (r *TestResult) HTMLInOrder(substrs ...string) bool {
	rest := r.HTML
	for _, s := range substrs {
		i := strings.Index(rest, s)
		if i < 0 {
			return false
		}
		rest = rest[i+len(s):]
	}
	return true
}

// HasHead checks if a head fragment equal to frag was collected.
func (r *TestResult) HasHead(frag string) bool {
	for _, h := range r.Head {
		if h == frag {
			return true
		}
	}
	return false
}

// HasState checks if the document embeds client state.
func (r *TestResult) HasState() bool {
	return r.State != ""
}

// IsFallback checks if the result is a fallback error document.
func (r *TestResult) IsFallback() bool {
	return strings.HasPrefix(r.HTML, FallbackPrefix)
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// HasHeader checks if a header is set with the given value.
func (r *TestResult) HasHeader(key, value string) bool {
	return r.Headers.Get(key) == value
}

// TestRequestBuilder provides a fluent interface for building test requests.
//
//	result := hxview.NewTestRequest("GET", "/").
//	    WithHeader("Accept", "text/html").
//	    WithContext(ctx).
//	    Execute(site)
type TestRequestBuilder struct {
	method  string
	url     string
	headers map[string]string
	ctx     context.Context
}

// NewTestRequest creates a new test request builder.
func NewTestRequest(method, url string) *TestRequestBuilder {
	return &TestRequestBuilder{
		method:  method,
		url:     url,
		headers: make(map[string]string),
		ctx:     context.Background(),
	}
}

// WithHeader adds a header to the request.
func (b *TestRequestBuilder) WithHeader(key, value string) *TestRequestBuilder {
	b.headers[key] = value
	return b
}

// WithContext sets the context for the request.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

// Execute serves the request through h.
func (b *TestRequestBuilder) Execute(h http.Handler) *TestResult {
	req := httptest.NewRequest(b.method, b.url, nil).WithContext(b.ctx)
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
	}
}
