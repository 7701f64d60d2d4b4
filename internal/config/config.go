// Package config loads the hxview server configuration from TOML or YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pthm/hxview/internal/observability"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvAddr     = "HXVIEW_ADDR"
	EnvLogLevel = observability.EnvLogLevel
)

// Supported HTTP adapters.
const (
	AdapterStd  = "std"
	AdapterEcho = "echo"
	AdapterGin  = "gin"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the server configuration.
type Config struct {
	Addr     string `toml:"addr" yaml:"addr"`
	LogLevel string `toml:"log_level" yaml:"log_level"`
	Adapter  string `toml:"adapter" yaml:"adapter"`
	// Client is the default client entry script for pages.
	Client string `toml:"client" yaml:"client"`
	// Layout is the default layout view path for pages.
	Layout string `toml:"layout" yaml:"layout"`

	Hot   HotConfig    `toml:"hot" yaml:"hot"`
	Views []ViewConfig `toml:"views" yaml:"views"`
	Pages []PageConfig `toml:"pages" yaml:"pages"`
}

// HotConfig configures the hot-reload stream.
type HotConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
	Channel string `toml:"channel" yaml:"channel"`
	// EventLog is a bbolt file keeping published payloads across restarts.
	// Empty keeps them in memory.
	EventLog    string   `toml:"event_log" yaml:"event_log"`
	LogLimit    int      `toml:"log_limit" yaml:"log_limit"`
	CORSOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
}

// ViewConfig declares a view from html/template text.
type ViewConfig struct {
	Path     string `toml:"path" yaml:"path"`
	Template string `toml:"template" yaml:"template"`
	Head     string `toml:"head" yaml:"head"`
	CSS      string `toml:"css" yaml:"css"`
}

// PageConfig maps a route to a view chain. Views are referenced by path.
type PageConfig struct {
	Route  string         `toml:"route" yaml:"route"`
	View   string         `toml:"view" yaml:"view"`
	Frames []string       `toml:"frames" yaml:"frames"`
	Layout string         `toml:"layout" yaml:"layout"`
	Error  string         `toml:"error" yaml:"error"`
	Client string         `toml:"client" yaml:"client"`
	Props  map[string]any `toml:"props" yaml:"props"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:     ":3000",
		LogLevel: "info",
		Adapter:  AdapterStd,
		Hot: HotConfig{
			Enabled:  true,
			Path:     "/_hot",
			Channel:  "hot",
			LogLimit: 256,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. The format follows the extension: .toml, .yaml
// or .yml. An empty path loads only the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	default:
		return fmt.Errorf("%w: unsupported config format %q", ErrInvalid, filepath.Ext(path))
	}
	return nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAddr); ok && strings.TrimSpace(v) != "" {
		c.Addr = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.LogLevel = strings.TrimSpace(v)
	}
}

func (c *Config) normalize() {
	c.Adapter = strings.ToLower(strings.TrimSpace(c.Adapter))
	if c.Hot.Path != "" {
		c.Hot.Path = "/" + strings.Trim(c.Hot.Path, "/")
	}
	for i := range c.Pages {
		c.Pages[i].Route = strings.TrimSpace(c.Pages[i].Route)
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr is empty", ErrInvalid)
	}
	switch c.Adapter {
	case AdapterStd, AdapterEcho, AdapterGin:
	default:
		return fmt.Errorf("%w: unknown adapter %q", ErrInvalid, c.Adapter)
	}
	if c.Hot.Enabled {
		if c.Hot.Path == "" || c.Hot.Path == "/" {
			return fmt.Errorf("%w: hot.path must name a route", ErrInvalid)
		}
		if c.Hot.Channel == "" {
			return fmt.Errorf("%w: hot.channel is empty", ErrInvalid)
		}
	}

	views := make(map[string]bool, len(c.Views))
	for i, v := range c.Views {
		if v.Path == "" {
			return fmt.Errorf("%w: views[%d] has no path", ErrInvalid, i)
		}
		if views[v.Path] {
			return fmt.Errorf("%w: view %q declared twice", ErrInvalid, v.Path)
		}
		if v.Template == "" {
			return fmt.Errorf("%w: view %q has no template", ErrInvalid, v.Path)
		}
		views[v.Path] = true
	}
	ref := func(route, role, path string) error {
		if path != "" && !views[path] {
			return fmt.Errorf("%w: page %q %s references unknown view %q", ErrInvalid, route, role, path)
		}
		return nil
	}
	if err := ref("*", "layout", c.Layout); err != nil {
		return err
	}

	routes := make(map[string]bool, len(c.Pages))
	for i, p := range c.Pages {
		if p.Route == "" {
			return fmt.Errorf("%w: pages[%d] has no route", ErrInvalid, i)
		}
		if routes[p.Route] {
			return fmt.Errorf("%w: route %q declared twice", ErrInvalid, p.Route)
		}
		routes[p.Route] = true
		if p.View == "" {
			return fmt.Errorf("%w: page %q has no view", ErrInvalid, p.Route)
		}
		if err := ref(p.Route, "view", p.View); err != nil {
			return err
		}
		for _, f := range p.Frames {
			if err := ref(p.Route, "frame", f); err != nil {
				return err
			}
		}
		if err := ref(p.Route, "layout", p.Layout); err != nil {
			return err
		}
		if err := ref(p.Route, "error", p.Error); err != nil {
			return err
		}
	}
	return nil
}
