// Package handlers wires the dashboard pages and the JSON API onto a chi
// router.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/ArWikiCats/arwikicats-web/internal/csrf"
	"github.com/ArWikiCats/arwikicats-web/internal/reports"
	"github.com/ArWikiCats/arwikicats-web/web"
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	Repos       RepoResolver
	Reports     *reports.Service
	Render      *Renderer
	CORSOrigins []string
}

// NewRouter builds the application router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(Recoverer(d.Render))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		d.Render.Error(w, req, http.StatusNotFound, TTInvalidURL, fmt.Errorf("404 Not Found: %s", req.URL.Path))
	})

	page := func(tmpl, id string) http.Handler {
		return &StaticPage{Repos: d.Repos, Render: d.Render, Template: tmpl, PageID: id}
	}
	dashboard := func(tmpl, id string) http.Handler {
		return &DashboardHandler{Repos: d.Repos, Reports: d.Reports, Render: d.Render, Template: tmpl, PageID: id}
	}

	r.Method(http.MethodGet, "/", page("index.html", "index"))
	r.Method(http.MethodGet, "/list", page("list.html", "list"))
	r.Method(http.MethodGet, "/logs", &QueryHandler{Repos: d.Repos, Reports: d.Reports, Render: d.Render})
	r.Method(http.MethodGet, "/logs_by_day", dashboard("logs_by_day.html", "logs_by_day"))
	r.Method(http.MethodGet, "/chart", dashboard("chart.html", "chart"))
	r.Method(http.MethodGet, "/chart2", dashboard("chart2.html", "chart2"))
	r.Method(http.MethodGet, "/no_result", &En2ArHandler{Repos: d.Repos, Reports: d.Reports, Render: d.Render})

	uh := &UploadHandler{Repos: d.Repos, Reports: d.Reports, Render: d.Render}
	r.Group(func(r chi.Router) {
		r.Use(csrf.Protect)
		r.Get("/import", uh.Form)
		r.Post("/import", uh.ServeHTTP)
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))

	api := &APIHandler{Repos: d.Repos, Reports: d.Reports}
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.NotFound(func(w http.ResponseWriter, req *http.Request) {
			jsonError(w, req, http.StatusNotFound, fmt.Errorf("%s: %s", TTInvalidURL, req.URL.Path))
		})

		r.Get("/logs", api.Logs)
		r.Get("/logs_by_day", api.LogsByDay)
		r.Get("/logs_en2ar", api.En2Ar)
		r.Get("/logs_en2ar/{day}", api.En2Ar)
		r.Get("/status", api.Status)
		r.Get("/dbs", api.DBs)
	})
	return r
}
