package hxview

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

type templateView struct {
	body *template.Template
	head *template.Template
	css  string
}

// Template compiles html/template text into a Compiled view. Templates are
// executed with the props as dot and may call:
//
//	{{slot "default"}}   the named slot's markup
//	{{ctx "user"}}       a value from the view context
//
// head, when non-empty, is compiled the same way and becomes the view's
// head fragment; css is attached verbatim.
func Template(name, body, head, css string) (Compiled, error) {
	v := &templateView{css: css}
	var err error
	if v.body, err = parseTemplate(name, body); err != nil {
		return nil, err
	}
	if head != "" {
		if v.head, err = parseTemplate(name+".head", head); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// MustTemplate is like Template but panics on a parse error.
func MustTemplate(name, body, head, css string) Compiled {
	v, err := Template(name, body, head, css)
	if err != nil {
		panic(err)
	}
	return v
}

func parseTemplate(name, text string) (*template.Template, error) {
	t, err := template.New(name).Funcs(templateFuncs(context.Background(), Scope{})).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("hxview: parse template %s: %w", name, err)
	}
	return t, nil
}

func templateFuncs(ctx context.Context, scope Scope) template.FuncMap {
	return template.FuncMap{
		"slot": func(name string) (template.HTML, error) {
			html, err := scope.Slots.Render(ctx, name)
			return template.HTML(html), err
		},
		"ctx": func(key string) any {
			return scope.Context[key]
		},
	}
}

func (v *templateView) Render(ctx context.Context, props Props, scope Scope) (RenderResult, error) {
	body, err := execTemplate(ctx, v.body, props, scope)
	if err != nil {
		return RenderResult{}, err
	}
	out := RenderResult{HTML: body, CSS: v.css}
	if v.head != nil {
		if out.Head, err = execTemplate(ctx, v.head, props, scope); err != nil {
			return RenderResult{}, err
		}
	}
	return out, nil
}

// execTemplate binds the slot and context functions for this render on a
// clone, leaving the parsed template untouched for concurrent renders.
func execTemplate(ctx context.Context, t *template.Template, props Props, scope Scope) (string, error) {
	clone, err := t.Clone()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := clone.Funcs(templateFuncs(ctx, scope)).Execute(&buf, props); err != nil {
		return "", err
	}
	return buf.String(), nil
}
