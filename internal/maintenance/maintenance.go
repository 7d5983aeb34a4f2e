// Package maintenance periodically re-runs the date_only migration and
// PRAGMA optimize on every open log database.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/ArWikiCats/arwikicats-web/internal/repository"
)

const runTimeout = 10 * time.Minute

// Databases is the set of open repositories a run walks over.
type Databases interface {
	Range(fn func(repo *repository.SQLiteRepository) bool)
}

// Invalidator forgets cached reports of one database.
type Invalidator interface {
	Invalidate(dbPath string)
}

// Report summarizes one maintenance run.
type Report struct {
	Databases  int
	Backfilled int64
}

type Service struct {
	dbs         Databases
	reports     Invalidator
	cron        *cron.Cron
	cronEntryID cron.EntryID
	runMu       sync.Mutex // serializes RunNow calls
	lifeCtx     context.Context
	lifeCancel  context.CancelFunc
}

// NewService schedules maintenance runs on schedule, a standard five-field
// cron expression. Databases whose rows were backfilled are reported to
// reports, which may be nil. The scheduler does not tick until Start.
func NewService(schedule string, dbs Databases, reports Invalidator) (*Service, error) {
	c := cron.New()
	lifeCtx, lifeCancel := context.WithCancel(context.Background())
	s := &Service{
		dbs:        dbs,
		reports:    reports,
		cron:       c,
		lifeCtx:    lifeCtx,
		lifeCancel: lifeCancel,
	}
	entryID, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(s.lifeCtx, runTimeout)
		defer cancel()
		if _, err := s.RunNow(ctx); err != nil {
			log.WithError(err).Error("maintenance: scheduled run failed")
		}
	})
	if err != nil {
		lifeCancel()
		return nil, fmt.Errorf("maintenance: invalid schedule %q: %w", schedule, err)
	}
	s.cronEntryID = entryID
	return s, nil
}

func (s *Service) Start() {
	s.cron.Start()
	log.WithField("next_run", s.NextRun().Format(time.RFC3339)).Info("maintenance scheduler started")
}

// Stop cancels an in-flight run and waits for the scheduler to wind down.
func (s *Service) Stop() {
	s.lifeCancel()
	<-s.cron.Stop().Done()
}

// NextRun is the zero time until Start.
func (s *Service) NextRun() time.Time {
	return s.cron.Entry(s.cronEntryID).Next
}

// RunNow migrates and optimizes every open database. A failing database
// does not stop the others; all failures are returned joined.
func (s *Service) RunNow(ctx context.Context) (Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var (
		rep  Report
		errs []error
	)
	start := time.Now()
	s.dbs.Range(func(repo *repository.SQLiteRepository) bool {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			return false
		}
		rep.Databases++
		n, err := repo.Migrate(ctx)
		rep.Backfilled += n
		if n > 0 && s.reports != nil {
			s.reports.Invalidate(repo.Path())
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", repo.Path(), err))
			return true
		}
		if err := repo.Optimize(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", repo.Path(), err))
		}
		return true
	})
	log.WithFields(log.Fields{
		"databases":  rep.Databases,
		"backfilled": rep.Backfilled,
		"duration":   time.Since(start).String(),
	}).Info("maintenance run finished")
	return rep, errors.Join(errs...)
}
