package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/ArWikiCats/arwikicats-web/internal/reports"
	"github.com/ArWikiCats/arwikicats-web/internal/repository"
)

// QueryHandler serves the paginated log table.
type QueryHandler struct {
	Repos   RepoResolver
	Reports *reports.Service
	Render  *Renderer
}

type SortableColumn struct {
	Name   string
	Field  string
	URL    string
	Active bool
	Desc   bool
}

type QueryPageData struct {
	PageID string
	*reports.LogsView
	Columns        []SortableColumn
	PrevURL        string
	NextURL        string
	DBs            []string
	Tables         []string
	PerPageOptions []int
}

func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := reports.ParseLogsParams(r.URL.Query())
	repo, name, err := h.Repos.Repo(r.Context(), p.DBPath)
	if err != nil {
		h.Render.Error(w, r, http.StatusInternalServerError, TTUnexpectedError, err)
		return
	}
	p.DBPath = name

	view, err := h.Reports.ViewLogs(r.Context(), repo, p)
	if err != nil {
		h.Render.Error(w, r, http.StatusInternalServerError, TTUnexpectedError, err)
		return
	}

	base := p.Query()
	prevURL := ""
	if view.Tab.Page > 1 {
		prevURL = pageURL(base, view.Tab.Page-1)
	}
	nextURL := ""
	if view.Tab.Page < view.Tab.TotalPages {
		nextURL = pageURL(base, view.Tab.Page+1)
	}

	h.Render.Page(w, r, "logs.html", QueryPageData{
		PageID:         "logs",
		LogsView:       view,
		Columns:        buildSortColumns(base, view.Tab.OrderBy, view.Tab.Order == "desc"),
		PrevURL:        prevURL,
		NextURL:        nextURL,
		DBs:            h.Repos.List(),
		Tables:         repository.Tables,
		PerPageOptions: []int{10, 25, 50, 100, reports.MaxPerPage},
	})
}

func pageURL(base url.Values, page int) string {
	q := make(url.Values, len(base))
	for k, v := range base {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	return "?" + q.Encode()
}

func buildSortColumns(base url.Values, currentSort string, currentDesc bool) []SortableColumn {
	defs := []struct{ Name, Field string }{
		{"#", "id"},
		{"Endpoint", "endpoint"},
		{"Title", "request_data"},
		{"Status", "response_status"},
		{"Time (s)", "response_time"},
		{"Count", "response_count"},
		{"Timestamp", "timestamp"},
		{"Day", "date_only"},
	}
	cols := make([]SortableColumn, len(defs))
	for i, d := range defs {
		active := d.Field == currentSort
		newDesc := true
		if active && currentDesc {
			newDesc = false
		}
		q := make(url.Values)
		for k, v := range base {
			if k != "order_by" && k != "order" && k != "page" {
				q[k] = v
			}
		}
		q.Set("order_by", d.Field)
		if newDesc {
			q.Set("order", "desc")
		} else {
			q.Set("order", "asc")
		}
		cols[i] = SortableColumn{
			Name:   d.Name,
			Field:  d.Field,
			URL:    "?" + q.Encode(),
			Active: active,
			Desc:   currentDesc && active,
		}
	}
	return cols
}
