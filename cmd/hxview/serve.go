package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pthm/hxview"
	hxviewecho "github.com/pthm/hxview/adapters/echo"
	hxviewgin "github.com/pthm/hxview/adapters/gin"
	"github.com/pthm/hxview/internal/config"
	"github.com/pthm/hxview/internal/observability"
	"github.com/pthm/hxview/lib/hotwire"
	"github.com/rs/zerolog"
)

func runServe(args []string) error {
	var path string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config", "-c":
			v, err := flagValue(args, i, args[i])
			if err != nil {
				return err
			}
			path = v
			i++
		default:
			return fmt.Errorf("unknown argument: %s", args[i])
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger := observability.NewLogger("hxview", cfg.LogLevel, os.Stderr)
	observability.RegisterMetrics()

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	site := cfg.Site(reg)
	site.Logger = logger.With().Str("component", "site").Logger()
	site.Composer.Logger = logger.With().Str("component", "composer").Logger()

	var broker *hotwire.Broker
	if cfg.Hot.Enabled {
		var events hotwire.Log
		broker, events, err = newBroker(cfg.Hot, logger)
		if err != nil {
			return err
		}
		defer events.Close()
		defer broker.Close()
	}

	handler := newHandler(cfg, site, broker, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("adapter", cfg.Adapter).
			Int("pages", len(cfg.Pages)).
			Bool("hot", broker != nil).
			Msg("serving")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	// Hot streams are long-lived; closing the broker ends them so
	// Shutdown can drain.
	if broker != nil {
		broker.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newBroker(hot config.HotConfig, logger zerolog.Logger) (*hotwire.Broker, hotwire.Log, error) {
	var events hotwire.Log = hotwire.NewMemoryLog(hot.LogLimit)
	if hot.EventLog != "" {
		bl, err := hotwire.OpenBoltLog(hot.EventLog)
		if err != nil {
			return nil, nil, err
		}
		events = bl
	}
	broker, err := hotwire.NewBroker(events)
	if err != nil {
		events.Close()
		return nil, nil, err
	}
	broker.Logger = logger.With().Str("component", "hot").Logger()
	broker.Channel = hot.Channel
	return broker, events, nil
}

func newHandler(cfg config.Config, site *hxview.Site, broker *hotwire.Broker, logger zerolog.Logger) http.Handler {
	metrics := promhttp.Handler()

	switch cfg.Adapter {
	case config.AdapterEcho:
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.GET("/metrics", echo.WrapHandler(metrics))
		opts := []hxviewecho.Option{hxviewecho.WithHotPath(cfg.Hot.Path)}
		if broker != nil {
			opts = append(opts, hxviewecho.WithBroker(broker))
		}
		hxviewecho.Mount(e, site, opts...)
		return e

	case config.AdapterGin:
		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.Use(gin.Recovery())
		r.Use(hxviewgin.RequestLogger(logger))
		r.GET("/metrics", gin.WrapH(metrics))
		opts := []hxviewgin.Option{
			hxviewgin.WithHotPath(cfg.Hot.Path),
			hxviewgin.WithCORSOrigins(cfg.Hot.CORSOrigins...),
		}
		if broker != nil {
			opts = append(opts, hxviewgin.WithBroker(broker))
		}
		hxviewgin.Mount(r, site, opts...)
		return r
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics)
	if broker != nil {
		mux.Handle(cfg.Hot.Path, broker)
		mux.Handle(cfg.Hot.Path+"/publish", broker.PublishHandler())
	}
	mux.Handle("/", site)
	return mux
}
