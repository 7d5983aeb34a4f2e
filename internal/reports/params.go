package reports

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ArWikiCats/arwikicats-web/internal/repository"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	DefaultOrder   = "desc"
	MaxPerPage     = repository.MaxPerPage
)

// LogsParams are the query parameters of the log table views, validated.
type LogsParams struct {
	Page      int
	PerPage   int
	Order     string
	OrderBy   string
	Status    string
	Like      string
	Day       string
	TableName string
	DBPath    string
}

// DailyParams are the query parameters of the daily rollup views.
type DailyParams struct {
	TableName string
	DBPath    string
}

// ParseLogsParams reads q, replacing anything invalid with its default.
func ParseLogsParams(q url.Values) LogsParams {
	return LogsParams{
		Page:      positiveInt(q.Get("page"), DefaultPage),
		PerPage:   min(positiveInt(q.Get("per_page"), DefaultPerPage), MaxPerPage),
		Order:     repository.NormalizeOrder(q.Get("order")),
		OrderBy:   repository.NormalizeOrderBy(q.Get("order_by")),
		Status:    strings.TrimSpace(q.Get("status")),
		Like:      strings.TrimSpace(q.Get("like")),
		Day:       ParseDay(q.Get("day")),
		TableName: repository.NormalizeTable(q.Get("table_name")),
		DBPath:    strings.TrimSpace(q.Get("db_path")),
	}
}

func ParseDailyParams(q url.Values) DailyParams {
	return DailyParams{
		TableName: repository.NormalizeTable(q.Get("table_name")),
		DBPath:    strings.TrimSpace(q.Get("db_path")),
	}
}

// ParseDay returns s when it is a YYYY-MM-DD date and "" otherwise.
func ParseDay(s string) string {
	s = strings.TrimSpace(s)
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return ""
	}
	return s
}

// Query encodes p back into URL parameters, omitting empty filters.
func (p LogsParams) Query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("per_page", strconv.Itoa(p.PerPage))
	q.Set("order", p.Order)
	q.Set("order_by", p.OrderBy)
	q.Set("table_name", p.TableName)
	for k, v := range map[string]string{"status": p.Status, "like": p.Like, "day": p.Day, "db_path": p.DBPath} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
