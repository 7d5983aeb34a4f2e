package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	log "github.com/sirupsen/logrus"

	"github.com/ArWikiCats/arwikicats-web/internal/reports"
)

// APIHandler serves the report view models as JSON.
type APIHandler struct {
	Repos   RepoResolver
	Reports *reports.Service
}

type StatusResponse struct {
	TableName   string   `json:"table_name"`
	DBPath      string   `json:"db_path"`
	StatusTable []string `json:"status_table"`
}

type DBsResponse struct {
	DBs     []string `json:"dbs"`
	Default string   `json:"default"`
}

func jsonError(w http.ResponseWriter, r *http.Request, status int, err error) {
	log.WithFields(log.Fields{
		"request_id": RequestID(r.Context()),
		"path":       r.URL.Path,
		"status":     status,
	}).WithError(err).Warn("api error")
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

func (h *APIHandler) Logs(w http.ResponseWriter, r *http.Request) {
	p := reports.ParseLogsParams(r.URL.Query())
	repo, name, err := h.Repos.Repo(r.Context(), p.DBPath)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, err)
		return
	}
	p.DBPath = name
	view, err := h.Reports.ViewLogs(r.Context(), repo, p)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, view)
}

func (h *APIHandler) LogsByDay(w http.ResponseWriter, r *http.Request) {
	p := reports.ParseDailyParams(r.URL.Query())
	repo, name, err := h.Repos.Repo(r.Context(), p.DBPath)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, err)
		return
	}
	p.DBPath = name
	view, err := h.Reports.RetrieveLogsByDate(r.Context(), repo, p)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, view)
}

// En2Ar takes the day from the {day} path segment or the day query
// parameter; an invalid day means all days.
func (h *APIHandler) En2Ar(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	if day == "" {
		day = r.URL.Query().Get("day")
	}
	day = reports.ParseDay(day)
	repo, _, err := h.Repos.Repo(r.Context(), strings.TrimSpace(r.URL.Query().Get("db_path")))
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, err)
		return
	}
	view, err := h.Reports.RetrieveLogsEnToAr(r.Context(), repo, day)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, view)
}

func (h *APIHandler) Status(w http.ResponseWriter, r *http.Request) {
	p := reports.ParseDailyParams(r.URL.Query())
	repo, name, err := h.Repos.Repo(r.Context(), p.DBPath)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, err)
		return
	}
	statuses, err := repo.GetResponseStatus(r.Context(), p.TableName)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, err)
		return
	}
	if statuses == nil {
		statuses = []string{}
	}
	render.JSON(w, r, StatusResponse{TableName: p.TableName, DBPath: name, StatusTable: statuses})
}

func (h *APIHandler) DBs(w http.ResponseWriter, r *http.Request) {
	dbs := h.Repos.List()
	if dbs == nil {
		dbs = []string{}
	}
	render.JSON(w, r, DBsResponse{DBs: dbs, Default: h.Repos.Default()})
}
