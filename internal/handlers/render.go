package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Values of the tt field on the error page.
const (
	TTInvalidURL      = "invalid_url"
	TTUnexpectedError = "unexpected_error"
)

// Renderer executes the parsed page templates.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer(pages map[string]*template.Template) *Renderer {
	return &Renderer{pages: pages}
}

type ErrorPageData struct {
	PageID string
	Status int
	TT     string
	Error  string
}

// Page renders the named page through the base layout. Output is buffered so
// a failing template still yields a clean 500.
func (rd *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data any) {
	rd.write(w, r, http.StatusOK, name, data)
}

// Error renders error.html with status.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, status int, tt string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	entry := log.WithFields(log.Fields{
		"request_id": RequestID(r.Context()),
		"path":       r.URL.Path,
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.Debug(msg)
	}
	rd.write(w, r, status, "error.html", ErrorPageData{PageID: "error", Status: status, TT: tt, Error: msg})
}

func (rd *Renderer) write(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	t, ok := rd.pages[name]
	if !ok {
		log.WithField("template", name).Error("unknown template")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		log.WithFields(log.Fields{
			"request_id": RequestID(r.Context()),
			"template":   name,
		}).WithError(err).Error("render failed")
		http.Error(w, fmt.Sprintf("render %s: %v", name, err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
