package hxview

import (
	"io"
	"net/http"
	"strconv"
)

// Render writes a composed document to the HTTP response.
//
// Sets Content-Type to text/html (text/plain for fallback documents, whose
// body is a bare message) and the document's status. HEAD requests get
// headers only.
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    doc := composer.Compose(r.Context(), page, reg)
//	    hxview.Render(w, r, doc)
//	}
func Render(w http.ResponseWriter, r *http.Request, doc ComposedDocument) error {
	status := doc.Status
	if status == 0 {
		status = http.StatusOK
	}

	h := w.Header()
	if IsFallback(doc) {
		h.Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		h.Set("Content-Type", "text/html; charset=utf-8")
	}
	h.Set("Content-Length", strconv.Itoa(len(doc.HTML)))
	w.WriteHeader(status)

	if r != nil && r.Method == http.MethodHead {
		return nil
	}
	_, err := io.WriteString(w, doc.HTML)
	return err
}

// IsFallback reports whether doc is a fallback document rather than a
// composed page.
func IsFallback(doc ComposedDocument) bool {
	return len(doc.HTML) >= len(FallbackPrefix) && doc.HTML[:len(FallbackPrefix)] == FallbackPrefix
}
