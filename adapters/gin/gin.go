// Package hxviewgin provides Gin integration for hxview sites.
//
//	r := gin.New()
//	r.Use(hxviewgin.RequestLogger(logger))
//	hxviewgin.Mount(r, site, hxviewgin.WithBroker(broker))
//
// Pages are served from the engine's NoRoute handler so they never
// conflict with routes the application registers itself.
package hxviewgin

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pthm/hxview"
	"github.com/pthm/hxview/lib/hotwire"
	"github.com/rs/zerolog"
)

// Option configures Mount.
type Option func(*options)

type options struct {
	hotPath string
	broker  *hotwire.Broker
	origins []string
}

// WithBroker serves the hot-reload stream from b.
func WithBroker(b *hotwire.Broker) Option {
	return func(o *options) { o.broker = b }
}

// WithHotPath sets the path of the hot-reload stream. Defaults to "/_hot".
func WithHotPath(path string) Option {
	return func(o *options) { o.hotPath = "/" + strings.Trim(path, "/") }
}

// WithCORSOrigins allows cross-origin clients, such as a dev server on
// another port, to use the hot routes. Defaults to any origin.
func WithCORSOrigins(origins ...string) Option {
	return func(o *options) { o.origins = origins }
}

// Mount serves site for GET and HEAD requests no other route matches, and
// mounts the hot routes when a broker is given.
func Mount(r *gin.Engine, site *hxview.Site, opts ...Option) {
	o := &options{hotPath: "/_hot"}
	for _, opt := range opts {
		opt(o)
	}

	if o.broker != nil {
		hot := r.Group(o.hotPath, cors.New(corsConfig(o.origins)))
		hot.GET("", gin.WrapH(o.broker))
		hot.POST("/publish", gin.WrapH(o.broker.PublishHandler()))
		hot.OPTIONS("", func(*gin.Context) {})
		hot.OPTIONS("/publish", func(*gin.Context) {})
	}
	r.NoRoute(PageHandler(site))
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Last-Event-ID"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// PageHandler composes the page for the request path.
func PageHandler(site *hxview.Site) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := c.Request
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			c.Header("Allow", "GET, HEAD")
			c.String(http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		doc := site.Compose(req.Context(), req.URL.Path, req.URL.RawQuery)
		Render(c, doc)
	}
}

// Render writes a composed document to the Gin response.
func Render(c *gin.Context, doc hxview.ComposedDocument) {
	if err := hxview.Render(c.Writer, c.Request, doc); err != nil {
		_ = c.Error(err)
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("http_request")
	}
}
