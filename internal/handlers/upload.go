package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/ArWikiCats/arwikicats-web/internal/csrf"
	"github.com/ArWikiCats/arwikicats-web/internal/ingest"
	"github.com/ArWikiCats/arwikicats-web/internal/reports"
	"github.com/ArWikiCats/arwikicats-web/internal/repository"
)

const maxUploadBytes = 64 << 20

// UploadHandler imports JSON-lines log records into a chosen database and
// table. Both routes sit behind csrf.Protect.
type UploadHandler struct {
	Repos   RepoResolver
	Reports *reports.Service
	Render  *Renderer
}

type UploadPageData struct {
	PageID    string
	CSRFToken string
	DBs       []string
	Tables    []string
}

type UploadResult struct {
	ingest.Result
	Table  string `json:"table"`
	DBPath string `json:"db_path"`
}

// Form renders the upload page.
func (h *UploadHandler) Form(w http.ResponseWriter, r *http.Request) {
	h.Render.Page(w, r, "import.html", UploadPageData{
		PageID:    "import",
		CSRFToken: csrf.Token(r),
		DBs:       h.Repos.List(),
		Tables:    repository.Tables,
	})
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("logfile")
	if err != nil {
		jsonError(w, r, http.StatusBadRequest, errors.New("no file uploaded or invalid form: "+err.Error()))
		return
	}
	defer file.Close()

	table := r.FormValue("table_name")
	if !repository.ValidTable(table) {
		table = repository.TableLogs
	}
	repo, name, err := h.Repos.Repo(r.Context(), r.FormValue("db_path"))
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, err)
		return
	}

	res, err := ingest.IngestReader(r.Context(), file, repo, table)
	// Imported rows may belong to days whose reports are cached, even when
	// a later batch failed.
	if res.Inserted > 0 && h.Reports != nil {
		h.Reports.Invalidate(repo.Path())
	}
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, errors.New("failed to ingest: "+err.Error()))
		return
	}
	render.JSON(w, r, UploadResult{Result: res, Table: table, DBPath: name})
}
