package config

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const tomlConfig = `
addr = ":8080"
adapter = "Gin"
layout = "/views/layout.js"

[hot]
enabled = true
path = "dev/hot/"
event_log = "hot.db"
cors_origins = ["http://localhost:5173"]

[[views]]
path = "/views/layout.js"
template = '<!DOCTYPE html><html><head>{{slot "head"}}</head><body>{{slot "default"}}</body></html>'

[[views]]
path = "/views/home.js"
template = "<h1>{{.title}}</h1>"
head = "<title>{{.title}}</title>"

[[pages]]
route = "/"
view = "/views/home.js"
[pages.props]
title = "Home"
`

const yamlConfig = `
addr: ":9090"
log_level: debug
client: /client/entry.js
hot:
  enabled: false
views:
  - path: /views/shell.js
    template: '<div class="shell">{{slot "default"}}</div>'
  - path: /views/post.js
    template: '<article>{{.title}}</article>'
    css: article{}
pages:
  - route: /blog
    view: /views/post.js
    frames: [/views/shell.js]
    props:
      title: Posts
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load(\"\") mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTOML(t *testing.T) {
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load(writeFile(t, "hxview.toml", tomlConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Adapter != AdapterGin {
		t.Errorf("Adapter = %q, want gin", cfg.Adapter)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.LogLevel)
	}
	want := HotConfig{
		Enabled:     true,
		Path:        "/dev/hot",
		Channel:     "hot",
		EventLog:    "hot.db",
		LogLimit:    256,
		CORSOrigins: []string{"http://localhost:5173"},
	}
	if diff := cmp.Diff(want, cfg.Hot); diff != "" {
		t.Errorf("Hot mismatch (-want +got):\n%s", diff)
	}
	if len(cfg.Views) != 2 || len(cfg.Pages) != 1 {
		t.Fatalf("views = %d, pages = %d", len(cfg.Views), len(cfg.Pages))
	}
	if got := cfg.Pages[0].Props["title"]; got != "Home" {
		t.Errorf("props.title = %v, want Home", got)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load(writeFile(t, "hxview.yml", yamlConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":9090" || cfg.LogLevel != "debug" || cfg.Hot.Enabled {
		t.Errorf("cfg = %+v", cfg)
	}
	if diff := cmp.Diff([]string{"/views/shell.js"}, cfg.Pages[0].Frames); diff != "" {
		t.Errorf("Frames mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvAddr, "127.0.0.1:4000")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(writeFile(t, "hxview.toml", tomlConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != "127.0.0.1:4000" {
		t.Errorf("Addr = %q, want env override", cfg.Addr)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want env override", cfg.LogLevel)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "hxview.json", "{}"},
		{"bad toml", "hxview.toml", "addr = "},
		{"bad yaml", "hxview.yaml", "addr: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.file, tt.content)); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load(missing) error = nil, want error")
	}
}

func TestValidate(t *testing.T) {
	view := ViewConfig{Path: "/v.js", Template: "<p></p>"}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }, "addr"},
		{"unknown adapter", func(c *Config) { c.Adapter = "fiber" }, "adapter"},
		{"root hot path", func(c *Config) { c.Hot.Path = "/" }, "hot.path"},
		{"empty channel", func(c *Config) { c.Hot.Channel = "" }, "hot.channel"},
		{"view without path", func(c *Config) { c.Views = []ViewConfig{{Template: "x"}} }, "no path"},
		{"view without template", func(c *Config) { c.Views = []ViewConfig{{Path: "/v.js"}} }, "no template"},
		{"duplicate view", func(c *Config) { c.Views = []ViewConfig{view, view} }, "declared twice"},
		{"page without route", func(c *Config) { c.Pages = []PageConfig{{View: "/v.js"}} }, "no route"},
		{"page without view", func(c *Config) { c.Pages = []PageConfig{{Route: "/"}} }, "no view"},
		{"duplicate route", func(c *Config) {
			c.Pages = []PageConfig{{Route: "/", View: "/v.js"}, {Route: "/", View: "/v.js"}}
		}, "declared twice"},
		{"unknown frame", func(c *Config) {
			c.Pages = []PageConfig{{Route: "/", View: "/v.js", Frames: []string{"/nope.js"}}}
		}, "unknown view"},
		{"unknown default layout", func(c *Config) { c.Layout = "/nope.js" }, "unknown view"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Views = []ViewConfig{view}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() error = %v, want %v", err, ErrInvalid)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want to mention %q", err, tt.want)
			}
		})
	}
}

func TestSiteFromConfig(t *testing.T) {
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load(writeFile(t, "hxview.yaml", yamlConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry() error = %v", err)
	}
	site := cfg.Site(reg)

	doc := site.Compose(context.Background(), "/blog", "")
	if doc.Status != http.StatusOK {
		t.Fatalf("Status = %d: %s", doc.Status, doc.HTML)
	}
	for _, want := range []string{
		`<div class="shell"><article>Posts</article></div>`,
		`<script type="module" async src="/client/entry.js"></script>`,
		"<style>article{}</style>",
	} {
		if !strings.Contains(doc.HTML, want) {
			t.Errorf("HTML = %s, want to contain %s", doc.HTML, want)
		}
	}

	if doc := site.Compose(context.Background(), "/", ""); doc.Status != http.StatusNotFound {
		t.Errorf("Status(/) = %d, want %d", doc.Status, http.StatusNotFound)
	}
}

func TestSiteWithLayout(t *testing.T) {
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load(writeFile(t, "hxview.toml", tomlConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry() error = %v", err)
	}

	doc := cfg.Site(reg).Compose(context.Background(), "/", "")
	want := `<!DOCTYPE html><html><head><title>Home</title></head><body><div id="hxview-root"><h1>Home</h1></div></body></html>`
	if doc.HTML != want {
		t.Errorf("HTML = %s, want %s", doc.HTML, want)
	}
}
