package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ArWikiCats/arwikicats-web/internal/models"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	dayLayout  = "2006-01-02"
)

// Expressions keep timestamp and date_only as plain text when scanned.
const selectColumns = `id, endpoint, request_data, response_status,
	COALESCE(response_time, 0), COALESCE(response_count, 0),
	COALESCE(strftime('%Y-%m-%d %H:%M:%S', timestamp), ''), COALESCE(date_only, '')`

type SQLiteRepository struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open connects to the database at path without touching the schema.
func Open(path string) (*SQLiteRepository, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteRepository{db: db, path: path, now: time.Now}, nil
}

// NewSQLite opens path, creates missing tables and runs the date_only
// migration.
func NewSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := r.InitDB(ctx); err != nil {
		r.Close()
		return nil, err
	}
	if _, err := r.Migrate(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) Path() string {
	return r.path
}

// LogRequest records one lookup. Failures are logged and reported as false
// so a logging problem never breaks the lookup response.
func (r *SQLiteRepository) LogRequest(ctx context.Context, endpoint, requestData, status string, responseTime float64, count int64) bool {
	now := r.now()
	table := TableForEndpoint(endpoint)
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO "+table+" (endpoint, request_data, response_status, response_time, response_count, timestamp, date_only) VALUES (?, ?, ?, ?, ?, ?, ?)",
		endpoint, requestData, status, responseTime, count, now.Format(timeLayout), now.Format(dayLayout),
	)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"table":    table,
			"endpoint": endpoint,
		}).Error("log request failed")
		return false
	}
	return true
}

// InsertBatch inserts records into table in one transaction. Records
// without a timestamp are stamped with the current time.
func (r *SQLiteRepository) InsertBatch(ctx context.Context, table string, records []models.LogRecord) error {
	if !ValidTable(table) {
		return fmt.Errorf("insert batch: unknown table %q", table)
	}
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert batch into %s: begin: %w", table, err)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO "+table+" (endpoint, request_data, response_status, response_time, response_count, timestamp, date_only) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("insert batch into %s: prepare: %w", table, err)
	}
	defer stmt.Close()

	now := r.now().Format(timeLayout)
	for _, rec := range records {
		ts := rec.Timestamp
		if ts == "" {
			ts = now
		}
		day := rec.DateOnly
		if day == "" && len(ts) >= len(dayLayout) {
			day = ts[:len(dayLayout)]
		}
		if _, err := stmt.ExecContext(ctx, rec.Endpoint, rec.RequestData, rec.ResponseStatus, rec.ResponseTime, rec.ResponseCount, ts, day); err != nil {
			return fmt.Errorf("insert batch into %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func buildWhere(f Filters) (string, []any) {
	var where []string
	var args []any

	switch f.Status {
	case "", "all":
	case models.StatusGroupCategory:
		where = append(where, "response_status != ?")
		args = append(args, models.StatusNoResult)
	default:
		where = append(where, "response_status = ?")
		args = append(args, f.Status)
	}
	if f.Like != "" {
		// Titles are stored with underscores; "_" also matches a typed space.
		where = append(where, "request_data LIKE ?")
		args = append(args, "%"+strings.ReplaceAll(f.Like, " ", "_")+"%")
	}
	if f.Day != "" {
		where = append(where, "date_only = ?")
		args = append(args, f.Day)
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// GetLogs returns one page of rows. Table, column and direction are
// coerced to known values; page is at least 1 and per_page is clamped to
// [1, MaxPerPage]. A page whose offset does not fit an int64 is empty.
func (r *SQLiteRepository) GetLogs(ctx context.Context, q LogQuery) ([]models.LogRecord, error) {
	table := NormalizeTable(q.Table)
	orderBy := NormalizeOrderBy(q.OrderBy)
	dir := strings.ToUpper(NormalizeOrder(q.Order))
	page := int64(max(q.Page, 1))
	perPage := int64(min(max(q.PerPage, 1), MaxPerPage))
	if page-1 > math.MaxInt64/perPage {
		return nil, nil
	}

	whereClause, args := buildWhere(q.Filters)
	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM "+table+whereClause+
			" ORDER BY "+orderBy+" "+dir+", id "+dir+" LIMIT ? OFFSET ?",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get logs from %s: %w", table, err)
	}
	defer rows.Close()

	var records []models.LogRecord
	for rows.Next() {
		var rec models.LogRecord
		if err := rows.Scan(&rec.ID, &rec.Endpoint, &rec.RequestData, &rec.ResponseStatus,
			&rec.ResponseTime, &rec.ResponseCount, &rec.Timestamp, &rec.DateOnly); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) CountAll(ctx context.Context, table string, f Filters) (int64, error) {
	table = NormalizeTable(table)
	whereClause, args := buildWhere(f)
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+whereClause, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

func (r *SQLiteRepository) SumResponseCount(ctx context.Context, table string, f Filters) (int64, error) {
	table = NormalizeTable(table)
	whereClause, args := buildWhere(f)
	var sum int64
	if err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(response_count), 0) FROM "+table+whereClause, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum response_count in %s: %w", table, err)
	}
	return sum, nil
}

// GetResponseStatus lists the distinct statuses for filter dropdowns.
func (r *SQLiteRepository) GetResponseStatus(ctx context.Context, table string) ([]string, error) {
	table = NormalizeTable(table)
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT response_status FROM "+table+" ORDER BY response_status")
	if err != nil {
		return nil, fmt.Errorf("list statuses in %s: %w", table, err)
	}
	defer rows.Close()

	var statuses []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan status in %s: %w", table, err)
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// FetchLogsByDate groups rows by day and status group. Legacy rows without
// date_only fall back to the date of their timestamp.
func (r *SQLiteRepository) FetchLogsByDate(ctx context.Context, table string) ([]models.DateStatusRow, error) {
	table = NormalizeTable(table)
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(date_only, DATE(timestamp)) AS day,
			CASE WHEN response_status = ? THEN ? ELSE ? END AS status_group,
			COUNT(*),
			COALESCE(SUM(response_count), 0)
		FROM `+table+`
		GROUP BY day, status_group
		ORDER BY day, status_group`,
		models.StatusNoResult, models.StatusNoResult, models.StatusGroupCategory,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch %s by date: %w", table, err)
	}
	defer rows.Close()

	var out []models.DateStatusRow
	for rows.Next() {
		var row models.DateStatusRow
		var day sql.NullString
		if err := rows.Scan(&day, &row.StatusGroup, &row.TitleCount, &row.Count); err != nil {
			return nil, fmt.Errorf("scan %s by date: %w", table, err)
		}
		if !day.Valid {
			continue
		}
		row.DateOnly = day.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// AllLogsEn2Ar maps each English title in logs to its latest status for
// day, or over all time when day is empty.
func (r *SQLiteRepository) AllLogsEn2Ar(ctx context.Context, day string) (map[string]string, error) {
	query := "SELECT request_data, response_status FROM " + TableLogs
	var args []any
	if day != "" {
		query += " WHERE date_only = ?"
		args = append(args, day)
	}
	rows, err := r.db.QueryContext(ctx, query+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("en2ar query: %w", err)
	}
	defer rows.Close()

	mapping := make(map[string]string)
	for rows.Next() {
		var en, ar string
		if err := rows.Scan(&en, &ar); err != nil {
			return nil, fmt.Errorf("en2ar scan: %w", err)
		}
		mapping[en] = ar
	}
	return mapping, rows.Err()
}

// Optimize runs SQLite's planner statistics maintenance.
func (r *SQLiteRepository) Optimize(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "PRAGMA optimize")
	return err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
