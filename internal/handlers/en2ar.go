package handlers

import (
	"net/http"
	"strings"

	"github.com/ArWikiCats/arwikicats-web/internal/reports"
)

// En2ArHandler serves the no-result report: titles logged without an
// Arabic label next to those that resolved.
type En2ArHandler struct {
	Repos   RepoResolver
	Reports *reports.Service
	Render  *Renderer
}

type En2ArPageData struct {
	PageID string
	*reports.En2ArView
	Day    string
	DBPath string
	DBs    []string
}

func (h *En2ArHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day := reports.ParseDay(q.Get("day"))
	repo, name, err := h.Repos.Repo(r.Context(), strings.TrimSpace(q.Get("db_path")))
	if err != nil {
		h.Render.Error(w, r, http.StatusInternalServerError, TTUnexpectedError, err)
		return
	}
	view, err := h.Reports.RetrieveLogsEnToAr(r.Context(), repo, day)
	if err != nil {
		h.Render.Error(w, r, http.StatusInternalServerError, TTUnexpectedError, err)
		return
	}
	h.Render.Page(w, r, "no_result.html", En2ArPageData{
		PageID:    "no_result",
		En2ArView: view,
		Day:       day,
		DBPath:    name,
		DBs:       h.Repos.List(),
	})
}
