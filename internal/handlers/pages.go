package handlers

import (
	"net/http"
)

// StaticPage renders a template that only needs the database list.
type StaticPage struct {
	Repos    RepoResolver
	Render   *Renderer
	Template string
	PageID   string
}

type StaticPageData struct {
	PageID string
	DBs    []string
}

func (h *StaticPage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Render.Page(w, r, h.Template, StaticPageData{PageID: h.PageID, DBs: h.Repos.List()})
}
