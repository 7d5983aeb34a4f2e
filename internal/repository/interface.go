package repository

import (
	"context"
	"strings"

	"github.com/ArWikiCats/arwikicats-web/internal/models"
)

const (
	TableLogs     = "logs"
	TableListLogs = "list_logs"

	DefaultOrderBy = "response_count"

	// MaxPerPage bounds the rows GetLogs returns for one page.
	MaxPerPage = 500
)

// Tables lists every log table, in schema order.
var Tables = []string{TableLogs, TableListLogs}

var sortableColumns = map[string]bool{
	"id":              true,
	"endpoint":        true,
	"request_data":    true,
	"response_status": true,
	"response_time":   true,
	"response_count":  true,
	"timestamp":       true,
	"date_only":       true,
}

// Filters narrows the rows seen by GetLogs, CountAll and SumResponseCount.
type Filters struct {
	Status string // "", "all", "Category" or an exact response_status
	Like   string // substring of request_data
	Day    string // date_only, YYYY-MM-DD
}

type LogQuery struct {
	Table   string
	Page    int
	PerPage int
	OrderBy string
	Order   string // "asc" or "desc"
	Filters Filters
}

// LogRepository is the query layer consumed by the report functions.
type LogRepository interface {
	Path() string
	LogRequest(ctx context.Context, endpoint, requestData, status string, responseTime float64, count int64) bool
	InsertBatch(ctx context.Context, table string, records []models.LogRecord) error
	GetLogs(ctx context.Context, q LogQuery) ([]models.LogRecord, error)
	CountAll(ctx context.Context, table string, f Filters) (int64, error)
	SumResponseCount(ctx context.Context, table string, f Filters) (int64, error)
	GetResponseStatus(ctx context.Context, table string) ([]string, error)
	FetchLogsByDate(ctx context.Context, table string) ([]models.DateStatusRow, error)
	AllLogsEn2Ar(ctx context.Context, day string) (map[string]string, error)
}

// ValidTable reports whether name is one of the log tables.
func ValidTable(name string) bool {
	return name == TableLogs || name == TableListLogs
}

// NormalizeTable returns name when it is a log table and "logs" otherwise.
func NormalizeTable(name string) string {
	if ValidTable(name) {
		return name
	}
	return TableLogs
}

// NormalizeOrderBy returns col when it is a sortable column and
// DefaultOrderBy otherwise.
func NormalizeOrderBy(col string) string {
	if sortableColumns[col] {
		return col
	}
	return DefaultOrderBy
}

// NormalizeOrder maps anything but "asc" to "desc".
func NormalizeOrder(order string) string {
	if strings.EqualFold(order, "asc") {
		return "asc"
	}
	return "desc"
}

// TableForEndpoint picks list_logs for batch lookups and logs for the rest.
func TableForEndpoint(endpoint string) string {
	if strings.HasPrefix(endpoint, "/api/list") {
		return TableListLogs
	}
	return TableLogs
}
