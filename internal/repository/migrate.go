package repository

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Migrate adds date_only to tables created before it existed and backfills
// it from timestamp. It returns the number of rows backfilled and may be
// run any number of times.
func (r *SQLiteRepository) Migrate(ctx context.Context) (int64, error) {
	var backfilled int64
	for _, table := range Tables {
		_, err := r.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN date_only DATE", table))
		switch {
		case err == nil:
			log.WithField("table", table).Info("added date_only column")
		case isDuplicateColumn(err):
			log.WithField("table", table).Debug("date_only column already present")
		default:
			return backfilled, fmt.Errorf("add date_only to %s: %w", table, err)
		}

		res, err := r.db.ExecContext(ctx,
			fmt.Sprintf("UPDATE %s SET date_only = DATE(timestamp) WHERE date_only IS NULL", table))
		if err != nil {
			return backfilled, fmt.Errorf("backfill date_only in %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			backfilled += n
		}

		if _, err := r.db.ExecContext(ctx,
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_date_only ON %[1]s(date_only)", table)); err != nil {
			return backfilled, fmt.Errorf("index date_only on %s: %w", table, err)
		}
	}
	return backfilled, nil
}

func isDuplicateColumn(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}
