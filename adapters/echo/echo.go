// Package hxviewecho provides Echo framework integration for hxview sites.
//
// Mount a site and its hot-reload stream onto an Echo instance:
//
//	e := echo.New()
//	broker, _ := hotwire.NewBroker(nil)
//	hxviewecho.Mount(e, site, hxviewecho.WithBroker(broker))
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	hxviewecho.MountGroup(g, site)
package hxviewecho

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pthm/hxview"
	"github.com/pthm/hxview/lib/hotwire"
)

// Option configures Mount and MountGroup.
type Option func(*options)

type options struct {
	hotPath string
	broker  *hotwire.Broker
}

// WithBroker serves the hot-reload stream from b. Without a broker no hot
// routes are mounted.
func WithBroker(b *hotwire.Broker) Option {
	return func(o *options) {
		o.broker = b
	}
}

// WithHotPath sets the path of the hot-reload stream. Payloads are
// published by POSTing to the same path plus "/publish".
// Defaults to "/_hot".
func WithHotPath(path string) Option {
	return func(o *options) {
		o.hotPath = "/" + strings.Trim(path, "/")
	}
}

// Mount serves site for every GET and HEAD request on e, plus the hot
// routes when a broker is given.
func Mount(e *echo.Echo, site *hxview.Site, opts ...Option) {
	o := newOptions(opts)
	if o.broker != nil {
		e.GET(o.hotPath, echo.WrapHandler(o.broker))
		e.POST(o.hotPath+"/publish", echo.WrapHandler(o.broker.PublishHandler()))
	}
	e.GET("/*", pageHandler(site))
	e.HEAD("/*", pageHandler(site))
}

// MountGroup is Mount for an Echo group. The site sees paths relative to
// the group prefix, and the group's middleware applies to every route.
func MountGroup(g *echo.Group, site *hxview.Site, opts ...Option) {
	o := newOptions(opts)
	if o.broker != nil {
		g.GET(o.hotPath, echo.WrapHandler(o.broker))
		g.POST(o.hotPath+"/publish", echo.WrapHandler(o.broker.PublishHandler()))
	}
	g.GET("/*", pageHandler(site))
	g.HEAD("/*", pageHandler(site))
}

func newOptions(opts []Option) *options {
	o := &options{hotPath: "/_hot"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func pageHandler(site *hxview.Site) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		doc := site.Compose(req.Context(), "/"+c.Param("*"), req.URL.RawQuery)
		return Render(c, doc)
	}
}

// Render writes a composed document to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxviewecho.Render(c, composer.Compose(ctx, page, reg))
//	}
func Render(c echo.Context, doc hxview.ComposedDocument) error {
	return hxview.Render(c.Response(), c.Request(), doc)
}
