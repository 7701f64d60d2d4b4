package config

import (
	"fmt"

	"github.com/pthm/hxview"
)

// Registry compiles every configured view into a new registry.
func (c Config) Registry() (*hxview.Registry, error) {
	reg := hxview.NewRegistry()
	for _, v := range c.Views {
		view, err := hxview.Template(v.Path, v.Template, v.Head, v.CSS)
		if err != nil {
			return nil, err
		}
		reg.Register(v.Path, view)
	}
	return reg, nil
}

// Site builds a site serving the configured pages from reg.
func (c Config) Site(reg *hxview.Registry) *hxview.Site {
	site := hxview.NewSite(reg)
	for _, p := range c.Pages {
		site.Page(p.Route, c.page(p))
	}
	return site
}

// page builds the view chain of p. View paths double as keys, so a path
// used twice in one chain fails page validation at compose time.
func (c Config) page(p PageConfig) hxview.Page {
	page := hxview.Page{
		View:   hxview.View{Key: p.View, Path: p.View, Props: hxview.Props(p.Props)},
		Client: firstNonEmpty(p.Client, c.Client),
	}
	for _, f := range p.Frames {
		page.Frames = append(page.Frames, hxview.View{Key: f, Path: f})
	}
	if layout := firstNonEmpty(p.Layout, c.Layout); layout != "" {
		page.Layout = &hxview.View{Key: fmt.Sprintf("layout:%s", layout), Path: layout}
	}
	if p.Error != "" {
		page.Error = &hxview.View{Key: fmt.Sprintf("error:%s", p.Error), Path: p.Error}
	}
	return page
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
