package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/puzpuzpuz/xsync/v4"
	log "github.com/sirupsen/logrus"
)

// Registry hands out one repository per database file, opening each file
// (schema + migration) the first time it is asked for.
type Registry struct {
	repos *xsync.Map[string, *SQLiteRepository]
}

func NewRegistry() *Registry {
	return &Registry{repos: xsync.NewMap[string, *SQLiteRepository]()}
}

// Get returns the repository for path, opening it if needed.
func (g *Registry) Get(ctx context.Context, path string) (*SQLiteRepository, error) {
	if repo, ok := g.repos.Load(path); ok {
		return repo, nil
	}
	var openErr error
	repo, _ := g.repos.Compute(path, func(old *SQLiteRepository, loaded bool) (*SQLiteRepository, xsync.ComputeOp) {
		if loaded {
			return old, xsync.CancelOp
		}
		repo, err := NewSQLite(ctx, path)
		if err != nil {
			openErr = err
			return nil, xsync.CancelOp
		}
		log.WithField("path", path).Info("opened log database")
		return repo, xsync.UpdateOp
	})
	if openErr != nil {
		return nil, openErr
	}
	return repo, nil
}

// Range calls fn for every open repository, in path order.
func (g *Registry) Range(fn func(repo *SQLiteRepository) bool) {
	var paths []string
	g.repos.Range(func(path string, _ *SQLiteRepository) bool {
		paths = append(paths, path)
		return true
	})
	sort.Strings(paths)
	for _, p := range paths {
		repo, ok := g.repos.Load(p)
		if !ok {
			continue
		}
		if !fn(repo) {
			return
		}
	}
}

// Close closes every repository and forgets it.
func (g *Registry) Close() error {
	var errs []error
	g.repos.Range(func(path string, repo *SQLiteRepository) bool {
		if err := repo.Close(); err != nil {
			errs = append(errs, err)
		}
		g.repos.Delete(path)
		return true
	})
	return errors.Join(errs...)
}
