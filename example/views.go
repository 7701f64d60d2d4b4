package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/pthm/hxview"
)

const (
	shellPath  = "/views/shell.js"
	listPath   = "/views/todos.js"
	detailPath = "/views/todo.js"
	errorPath  = "/views/error.js"
	clientPath = "/client/entry.js"
)

// registerViews adds the demo views to reg.
func registerViews(reg *hxview.Registry) {
	reg.Register(shellPath, hxview.Templ(shell, hxview.WithCSS(shellCSS)))
	reg.Register(listPath, hxview.Templ(todoList, hxview.WithHead(title("Todos"))))
	reg.Register(detailPath, hxview.Templ(todoDetail, hxview.WithHead(func(p hxview.Props) templ.Component {
		t, _ := p["todo"].(Todo)
		return title(t.Title)(p)
	})))
	reg.Register(errorPath, hxview.Templ(errorView))
}

const shellCSS = `.app{display:flex;gap:2rem}.done{text-decoration:line-through}`

func title(s string) func(hxview.Props) templ.Component {
	return func(hxview.Props) templ.Component {
		return write("<title>" + templ.EscapeString(s) + "</title>")
	}
}

// write renders a fixed string.
func write(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

// shell wraps every page with navigation and the store summary.
func shell(p hxview.Props) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		st, _ := p["stats"].(Stats)
		status := ""
		if s, ok := hxview.ContextValue(ctx, "status").(string); ok {
			status = s
		}

		var b strings.Builder
		b.WriteString(`<div class="app"><nav>`)
		for _, f := range []struct{ label, status string }{{"All", ""}, {"Open", "open"}, {"Done", "done"}} {
			href := "/"
			if f.status != "" {
				href += "?status=" + f.status
			}
			cls := ""
			if f.status == status {
				cls = ` class="active"`
			}
			fmt.Fprintf(&b, `<a href="%s"%s>%s</a>`, href, cls, f.label)
		}
		fmt.Fprintf(&b, `<p>%d open, %d done</p></nav><main>`, st.Open, st.Done)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := templ.GetChildren(ctx).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></div>`)
		return err
	})
}

func todoList(p hxview.Props) templ.Component {
	todos, _ := p["todos"].([]Todo)

	var b strings.Builder
	if len(todos) == 0 {
		return write(`<p class="empty">Nothing here.</p>`)
	}
	b.WriteString(`<ul class="todos">`)
	for _, t := range todos {
		cls := ""
		if t.Done {
			cls = ` class="done"`
		}
		fmt.Fprintf(&b, `<li%s><a href="/task/%s">%s</a></li>`, cls, t.ID, templ.EscapeString(t.Title))
	}
	b.WriteString(`</ul>`)
	return write(b.String())
}

func todoDetail(p hxview.Props) templ.Component {
	t, _ := p["todo"].(Todo)

	var b strings.Builder
	fmt.Fprintf(&b, `<article><h1>%s</h1><p>%s</p>`, templ.EscapeString(t.Title), templ.EscapeString(t.Notes))
	if len(t.Tags) > 0 {
		b.WriteString(`<ul class="tags">`)
		for _, tag := range t.Tags {
			fmt.Fprintf(&b, `<li>%s</li>`, templ.EscapeString(tag))
		}
		b.WriteString(`</ul>`)
	}
	state := "open"
	if t.Done {
		state = "done"
	}
	fmt.Fprintf(&b, `<form method="post" action="/task/%s/toggle"><button>Mark %s</button></form></article>`, t.ID, flip(state))
	return write(b.String())
}

func errorView(p hxview.Props) templ.Component {
	msg, _ := p["message"].(string)
	return write(`<div class="error"><h1>Something went wrong</h1><p>` + templ.EscapeString(msg) + `</p></div>`)
}

func flip(state string) string {
	if state == "open" {
		return "done"
	}
	return "open"
}
