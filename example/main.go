// Command example serves a small todo app composed from hxview views.
//
// Pages are a list and a detail view, both wrapped in a shell frame that
// shows the store summary. A hot-update stream is mounted at /_hot so
// `hxview push --url http://localhost:8080/_hot /views/shell.js` reaches
// connected clients.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/pthm/hxview"
	hxviewecho "github.com/pthm/hxview/adapters/echo"
	"github.com/pthm/hxview/internal/observability"
	"github.com/pthm/hxview/lib/hotwire"
)

func main() {
	logger := observability.NewLogger("example", "debug", os.Stderr)

	store := NewStore()
	reg := hxview.NewRegistry()
	registerViews(reg)

	site := newSite(reg, store)
	site.Logger = logger
	site.Composer.Logger = logger

	broker, err := hotwire.NewBroker(hotwire.NewMemoryLog(64))
	if err != nil {
		logger.Fatal().Err(err).Msg("create broker")
	}
	defer broker.Close()

	e := echo.New()
	e.HideBanner = true
	e.POST("/task/:id/toggle", func(c echo.Context) error {
		id := c.Param("id")
		if !store.Toggle(id) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return c.Redirect(http.StatusSeeOther, "/task/"+id)
	})
	hxviewecho.Mount(e, site, hxviewecho.WithBroker(broker))

	addr := ":8080"
	logger.Info().Str("addr", addr).Msg("starting example")
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// newSite routes the demo pages.
func newSite(reg *hxview.Registry, store *Store) *hxview.Site {
	site := hxview.NewSite(reg)

	frame := func(status string) hxview.View {
		return hxview.View{
			Key:     "shell",
			Path:    shellPath,
			Props:   hxview.Props{"stats": store.Stats()},
			Context: hxview.Context{"status": status},
		}
	}
	errView := &hxview.View{Key: "error", Path: errorPath}

	site.Handle("/", func(_ context.Context, req hxview.Request) (hxview.Page, error) {
		status := req.Query.Get("status")
		return hxview.Page{
			View: hxview.View{
				Key:   "todos",
				Path:  listPath,
				Props: hxview.Props{"status": status, "todos": store.List(status)},
			},
			Frames: []hxview.View{frame(status)},
			Error:  errView,
			Client: clientPath,
		}, nil
	})

	site.Handle("/task/{id}", func(_ context.Context, req hxview.Request) (hxview.Page, error) {
		t, ok := store.Get(req.Params["id"])
		if !ok {
			return hxview.Page{}, fmt.Errorf("task %q: %w", req.Params["id"], hxview.ErrNotFound)
		}
		return hxview.Page{
			View: hxview.View{
				Key:   "todo",
				Path:  detailPath,
				Props: hxview.Props{"todo": t},
			},
			Frames: []hxview.View{frame("")},
			Error:  errView,
			Client: clientPath,
		}, nil
	})

	return site
}
