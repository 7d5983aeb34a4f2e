package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/ArWikiCats/arwikicats-web/internal/reports"
	"github.com/ArWikiCats/arwikicats-web/internal/repository"
)

// DashboardHandler serves the daily rollup and the two chart pages, which
// differ only in template.
type DashboardHandler struct {
	Repos    RepoResolver
	Reports  *reports.Service
	Render   *Renderer
	Template string
	PageID   string
}

// StatusSeries is one status group's title counts, aligned with Days.
type StatusSeries struct {
	Status string  `json:"status"`
	Counts []int64 `json:"counts"`
}

type DashboardPageData struct {
	PageID string
	*reports.DailyView
	Tables         []string
	LogsDataJSON   template.JS
	StatusDaysJSON template.JS
	StatusJSON     template.JS
}

func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := reports.ParseDailyParams(r.URL.Query())
	repo, name, err := h.Repos.Repo(r.Context(), p.DBPath)
	if err != nil {
		h.Render.Error(w, r, http.StatusInternalServerError, TTUnexpectedError, err)
		return
	}
	p.DBPath = name

	view, err := h.Reports.RetrieveLogsByDate(r.Context(), repo, p)
	if err != nil {
		h.Render.Error(w, r, http.StatusInternalServerError, TTUnexpectedError, err)
		return
	}

	days, series := statusSeries(view)
	j1, _ := json.Marshal(view.LogsData)
	j2, _ := json.Marshal(days)
	j3, _ := json.Marshal(series)
	h.Render.Page(w, r, h.Template, DashboardPageData{
		PageID:         h.PageID,
		DailyView:      view,
		Tables:         repository.Tables,
		LogsDataJSON:   template.JS(j1),
		StatusDaysJSON: template.JS(j2),
		StatusJSON:     template.JS(j3),
	})
}

// statusSeries pivots the rollup into one series per status group.
func statusSeries(view *reports.DailyView) ([]string, []StatusSeries) {
	days := make([]string, len(view.Logs))
	for i, entry := range view.Logs {
		days[i] = entry.Day
	}
	series := make([]StatusSeries, 0, len(view.StatusTable))
	for _, status := range view.StatusTable {
		s := StatusSeries{Status: status, Counts: make([]int64, len(view.Logs))}
		for i, entry := range view.Logs {
			s.Counts[i] = entry.Statuses[status].TitleCount
		}
		series = append(series, s)
	}
	return days, series
}
