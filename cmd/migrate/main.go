// Command migrate brings log databases up to the current schema: it creates
// missing tables, adds date_only and backfills it from timestamp. It can
// also import a JSON-lines file into the migrated database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/ArWikiCats/arwikicats-web/internal/catalog"
	"github.com/ArWikiCats/arwikicats-web/internal/config"
	"github.com/ArWikiCats/arwikicats-web/internal/ingest"
	"github.com/ArWikiCats/arwikicats-web/internal/logger"
	"github.com/ArWikiCats/arwikicats-web/internal/repository"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	dbFlag := flag.String("db", "", "database file to migrate (default: the configured database)")
	all := flag.Bool("all", false, "migrate every *.db file in the database directory")
	importPath := flag.String("import", "", "JSON-lines file to import after migrating (single database only)")
	table := flag.String("table", repository.TableLogs, "table for -import: logs or list_logs")
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

	if *all && *importPath != "" {
		log.Fatal("-import cannot be combined with -all")
	}

	paths, err := targets(cfg, *dbFlag, *all)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(paths) == 0 {
		fmt.Println("No databases found in", cfg.DBDir)
		return
	}

	ctx := context.Background()
	failed := 0
	for i, path := range paths {
		fmt.Printf("[%d/%d] %s\n", i+1, len(paths), path)
		n, err := migrate(ctx, path, *importPath, *table)
		if err != nil {
			failed++
			log.WithField("db", path).WithError(err).Error("migration failed")
			continue
		}
		fmt.Printf("  backfilled date_only on %d rows\n", n)
	}
	if failed > 0 {
		os.Exit(1)
	}
	fmt.Println("Migration complete.")
}

func targets(cfg *config.Config, db string, all bool) ([]string, error) {
	if !all {
		if db == "" {
			return []string{cfg.DBPath()}, nil
		}
		if filepath.Base(db) == db {
			return []string{filepath.Join(cfg.DBDir, db)}, nil
		}
		return []string{db}, nil
	}
	dbs := catalog.New(cfg.DBDir, cfg.DBName)
	if err := dbs.Refresh(); err != nil {
		return nil, err
	}
	var paths []string
	for _, name := range dbs.List() {
		paths = append(paths, filepath.Join(dbs.Dir(), name))
	}
	return paths, nil
}

func migrate(ctx context.Context, path, importPath, table string) (int64, error) {
	repo, err := repository.Open(path)
	if err != nil {
		return 0, err
	}
	defer repo.Close()
	if err := repo.InitDB(ctx); err != nil {
		return 0, err
	}
	n, err := repo.Migrate(ctx)
	if err != nil {
		return n, err
	}
	if importPath != "" {
		res, err := ingest.IngestFile(ctx, importPath, repo, table)
		if err != nil {
			return n, err
		}
		fmt.Printf("  imported %d rows into %s (%d skipped)\n", res.Inserted, table, res.Skipped)
	}
	return n, repo.Optimize(ctx)
}
