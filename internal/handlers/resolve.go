package handlers

import (
	"context"

	"github.com/ArWikiCats/arwikicats-web/internal/catalog"
	"github.com/ArWikiCats/arwikicats-web/internal/repository"
)

// RepoResolver maps the db_path query parameter onto an open repository.
type RepoResolver interface {
	// Repo returns the repository for dbPath and the database name actually
	// used, which is the default when dbPath is empty or unknown.
	Repo(ctx context.Context, dbPath string) (repository.LogRepository, string, error)
	List() []string
	// Default is the database name used when none is selected.
	Default() string
}

// DBResolver resolves names through the catalog and opens files through the
// registry.
type DBResolver struct {
	Catalog  *catalog.Catalog
	Registry *repository.Registry
}

func (d *DBResolver) Repo(ctx context.Context, dbPath string) (repository.LogRepository, string, error) {
	path, name := d.Catalog.Resolve(dbPath)
	repo, err := d.Registry.Get(ctx, path)
	if err != nil {
		return nil, name, err
	}
	return repo, name, nil
}

func (d *DBResolver) List() []string {
	return d.Catalog.List()
}

func (d *DBResolver) Default() string {
	return d.Catalog.DefaultName()
}
