package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ArWikiCats/arwikicats-web/internal/catalog"
	"github.com/ArWikiCats/arwikicats-web/internal/config"
	"github.com/ArWikiCats/arwikicats-web/internal/handlers"
	"github.com/ArWikiCats/arwikicats-web/internal/logger"
	"github.com/ArWikiCats/arwikicats-web/internal/maintenance"
	"github.com/ArWikiCats/arwikicats-web/internal/reports"
	"github.com/ArWikiCats/arwikicats-web/internal/repository"
	"github.com/ArWikiCats/arwikicats-web/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logCloser, err := logger.Setup(cfg.Log, *debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logCloser.Close()

	registry := repository.NewRegistry()
	defer registry.Close()
	if _, err := registry.Get(context.Background(), cfg.DBPath()); err != nil {
		log.Fatalf("db: %v", err)
	}

	dbs := catalog.New(cfg.DBDir, cfg.DBName)
	if err := dbs.Refresh(); err != nil {
		log.Fatalf("catalog: %v", err)
	}
	stopWatch := make(chan struct{})
	go func() {
		if err := dbs.Watch(stopWatch); err != nil {
			log.WithError(err).Warn("catalog watcher stopped; database list will not refresh")
		}
	}()

	svc, err := reports.NewService(dbs, cfg.ReportCacheEntries)
	if err != nil {
		log.Fatalf("reports: %v", err)
	}
	defer svc.Close()

	maint, err := maintenance.NewService(cfg.MaintenanceSchedule, registry, svc)
	if err != nil {
		log.Fatalf("maintenance: %v", err)
	}
	maint.Start()

	pages, err := web.ParsePages()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}

	router := handlers.NewRouter(handlers.Deps{
		Repos:       &handlers.DBResolver{Catalog: dbs, Registry: registry},
		Reports:     svc,
		Render:      handlers.NewRenderer(pages),
		CORSOrigins: cfg.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"listen": cfg.Listen,
			"db":     cfg.DBPath(),
		}).Info("listening")
		serveErr <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("graceful shutdown incomplete")
	}
	maint.Stop()
	close(stopWatch)
}
