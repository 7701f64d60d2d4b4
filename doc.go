// Package hxview composes server-rendered pages out of nested views,
// hydrates the same tree on the client, and applies hot updates to a
// running client without losing its state.
//
// # Core Concepts
//
// A View is an opaque renderable unit: a key unique within its page, an
// asset path used to look up its implementation in a Registry, props that
// travel to the client, and a context that stays on the server.
//
//	page := hxview.Page{
//	    View:   hxview.View{Key: "home", Path: "/views/home.js", Props: hxview.Props{"title": "Hi"}},
//	    Frames: []hxview.View{{Key: "shell", Path: "/views/shell.js"}},
//	    Client: "/client.js",
//	}
//
// Implementations satisfy Compiled. Templ components are adapted with
// Templ, html/template text with Template:
//
//	reg := hxview.NewRegistry()
//	reg.Register("/views/home.js", hxview.Templ(homeTemplate))
//
// # Composition
//
// The Composer renders the page first, then each frame in slice order with
// the accumulated markup as its default slot, then the layout with
// default, head and style slots:
//
//	layout( frames[n-1]( ... frames[0]( page ) ) )
//
// Head and style fragments are emitted inner-first, so a layout's
// declarations come last and win on duplicates. When the page names a
// Client script, the serialized State (props for the page and each frame,
// never the layout) and a module script tag are appended to the head.
//
// A missing page never produces an error past the Composer: the result is
// a 404 document whose body is "fallback error: " followed by the reason.
//
// # Hydration
//
// On the client, a Hydrator reads the embedded State and rebuilds the same
// chain innermost-first. Inner layers are mounted inline and slotted into
// the next layer; only the outermost frame is mounted onto the target
// element, reusing the server markup when it matches.
//
// # Hot Reload
//
// A HotClient listens on an EventSource for HotPayload messages. A reload
// payload triggers a full reload immediately. A script list is handed to
// the ReloadQueue, which imports scripts one at a time, in order,
// registers each module under its URL path and notifies listeners after
// every registration. Only one drain runs at a time; batches queued while
// draining are picked up by the same drain.
//
//	sess, err := hxview.NewSession(ctx, reg, hxview.SessionConfig{
//	    Document: doc,
//	    Loader:   loader,
//	    Source:   source,
//	})
//	err = sess.Start(ctx)
package hxview
