// Package reports turns raw log queries into the view models rendered by
// the dashboard pages and returned by the JSON API.
package reports

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/maypok86/otter"

	"github.com/ArWikiCats/arwikicats-web/internal/models"
	"github.com/ArWikiCats/arwikicats-web/internal/repository"
)

// LogsTab is the pagination and summary block of the log table.
type LogsTab struct {
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	TotalPages int    `json:"total_pages"`
	Total      int64  `json:"total"`
	Sum        int64  `json:"sum"`
	Order      string `json:"order"`
	OrderBy    string `json:"order_by"`
	Status     string `json:"status"`
	Like       string `json:"like"`
	Day        string `json:"day"`
	TableName  string `json:"table_name"`
	DBPath     string `json:"db_path"`
}

type LogsView struct {
	Logs        []models.LogRecord `json:"logs"`
	Tab         LogsTab            `json:"tab"`
	StatusTable []string           `json:"status_table"`
}

type StatusTotals struct {
	TitleCount int64 `json:"title_count"`
	Count      int64 `json:"count"`
}

// DayEntry is one day of the rollup, summed over every status group.
type DayEntry struct {
	Day        string                  `json:"day"`
	TitleCount int64                   `json:"title_count"`
	Total      int64                   `json:"total"`
	Statuses   map[string]StatusTotals `json:"statuses"`
}

type DailyTab struct {
	TableName     string `json:"table_name"`
	DBPath        string `json:"db_path"`
	Days          int    `json:"days"`
	SumTitleCount int64  `json:"sum_title_count"`
	SumTotal      int64  `json:"sum_total"`
}

// ChartPoint is one day of the series drawn by the chart pages.
type ChartPoint struct {
	Day      string `json:"day"`
	NoResult int64  `json:"no_result"`
	Category int64  `json:"category"`
	Total    int64  `json:"total"`
}

type DailyView struct {
	Logs        []DayEntry   `json:"logs"`
	Tab         DailyTab     `json:"tab"`
	StatusTable []string     `json:"status_table"`
	DBs         []string     `json:"dbs"`
	LogsData    []ChartPoint `json:"logs_data"`
}

// En2ArTab carries counts as strings, the form the report page prints.
type En2ArTab struct {
	SumAll        string `json:"sum_all"`
	SumDataResult string `json:"sum_data_result"`
	SumNoResult   string `json:"sum_no_result"`
}

type En2ArView struct {
	NoResult   []string          `json:"no_result"`
	DataResult map[string]string `json:"data_result"`
	Tab        En2ArTab          `json:"tab"`
}

// DBLister lists the selectable database files.
type DBLister interface {
	List() []string
}

type Service struct {
	dbs   DBLister
	cache *otter.Cache[string, En2ArView]
	now   func() time.Time
}

// NewService builds a report service. cacheEntries bounds the cache of
// English→Arabic reports for past days; 0 or less disables it.
func NewService(dbs DBLister, cacheEntries int) (*Service, error) {
	s := &Service{dbs: dbs, now: time.Now}
	if cacheEntries > 0 {
		cache, err := otter.MustBuilder[string, En2ArView](cacheEntries).
			Cost(func(_ string, _ En2ArView) uint32 { return 1 }).
			Build()
		if err != nil {
			return nil, fmt.Errorf("build report cache: %w", err)
		}
		s.cache = &cache
	}
	return s, nil
}

// ViewLogs builds one page of the log table with display formatting.
func (s *Service) ViewLogs(ctx context.Context, repo repository.LogRepository, p LogsParams) (*LogsView, error) {
	table := repository.NormalizeTable(p.TableName)
	page := max(p.Page, 1)
	perPage := min(max(p.PerPage, 1), MaxPerPage)
	filters := repository.Filters{Status: p.Status, Like: p.Like, Day: p.Day}

	logs, err := repo.GetLogs(ctx, repository.LogQuery{
		Table:   table,
		Page:    page,
		PerPage: perPage,
		OrderBy: p.OrderBy,
		Order:   p.Order,
		Filters: filters,
	})
	if err != nil {
		return nil, err
	}
	total, err := repo.CountAll(ctx, table, filters)
	if err != nil {
		return nil, err
	}
	sum, err := repo.SumResponseCount(ctx, table, filters)
	if err != nil {
		return nil, err
	}
	statuses, err := repo.GetResponseStatus(ctx, table)
	if err != nil {
		return nil, err
	}

	if logs == nil {
		logs = []models.LogRecord{}
	}
	for i := range logs {
		logs[i].RequestData = strings.ReplaceAll(logs[i].RequestData, "_", " ")
	}
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	if totalPages < 1 {
		totalPages = 1
	}

	return &LogsView{
		Logs: logs,
		Tab: LogsTab{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			Total:      total,
			Sum:        sum,
			Order:      repository.NormalizeOrder(p.Order),
			OrderBy:    repository.NormalizeOrderBy(p.OrderBy),
			Status:     p.Status,
			Like:       p.Like,
			Day:        p.Day,
			TableName:  table,
			DBPath:     p.DBPath,
		},
		StatusTable: nonNil(statuses),
	}, nil
}

// RetrieveLogsByDate rolls the (day, status group) buckets up into one
// entry per day, ascending by day.
func (s *Service) RetrieveLogsByDate(ctx context.Context, repo repository.LogRepository, p DailyParams) (*DailyView, error) {
	table := repository.NormalizeTable(p.TableName)
	rows, err := repo.FetchLogsByDate(ctx, table)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*DayEntry)
	groups := make(map[string]bool)
	for _, row := range rows {
		entry, ok := byDay[row.DateOnly]
		if !ok {
			entry = &DayEntry{Day: row.DateOnly, Statuses: make(map[string]StatusTotals)}
			byDay[row.DateOnly] = entry
		}
		entry.TitleCount += row.TitleCount
		entry.Total += row.Count
		st := entry.Statuses[row.StatusGroup]
		st.TitleCount += row.TitleCount
		st.Count += row.Count
		entry.Statuses[row.StatusGroup] = st
		groups[row.StatusGroup] = true
	}

	view := &DailyView{
		Logs:        make([]DayEntry, 0, len(byDay)),
		Tab:         DailyTab{TableName: table, DBPath: p.DBPath},
		StatusTable: make([]string, 0, len(groups)),
		LogsData:    make([]ChartPoint, 0, len(byDay)),
	}
	for _, entry := range byDay {
		view.Logs = append(view.Logs, *entry)
	}
	sort.Slice(view.Logs, func(i, j int) bool { return view.Logs[i].Day < view.Logs[j].Day })

	for _, entry := range view.Logs {
		view.Tab.SumTitleCount += entry.TitleCount
		view.Tab.SumTotal += entry.Total
		view.LogsData = append(view.LogsData, ChartPoint{
			Day:      entry.Day,
			NoResult: entry.Statuses[models.StatusNoResult].TitleCount,
			Category: entry.Statuses[models.StatusGroupCategory].TitleCount,
			Total:    entry.Total,
		})
	}
	view.Tab.Days = len(view.Logs)

	for g := range groups {
		view.StatusTable = append(view.StatusTable, g)
	}
	sort.Strings(view.StatusTable)

	view.DBs = []string{}
	if s.dbs != nil {
		view.DBs = nonNil(s.dbs.List())
	}
	return view, nil
}

// RetrieveLogsEnToAr splits the English→Arabic mapping into titles without
// a label and titles with one. Reports for finished days are cached until
// Invalidate is called for their database.
func (s *Service) RetrieveLogsEnToAr(ctx context.Context, repo repository.LogRepository, day string) (*En2ArView, error) {
	key := cacheKeyPrefix(repo.Path()) + day
	cacheable := s.cache != nil && day != "" && day < s.now().Format("2006-01-02")
	if cacheable {
		if view, ok := s.cache.Get(key); ok {
			view = cloneEn2Ar(view)
			return &view, nil
		}
	}

	mapping, err := repo.AllLogsEn2Ar(ctx, day)
	if err != nil {
		return nil, err
	}
	view := SplitEn2Ar(mapping)
	if cacheable {
		s.cache.Set(key, cloneEn2Ar(view))
	}
	return &view, nil
}

// Invalidate drops the cached reports of the database at dbPath. Call it
// after anything writes rows for a past day.
func (s *Service) Invalidate(dbPath string) {
	if s.cache == nil {
		return
	}
	prefix := cacheKeyPrefix(dbPath)
	s.cache.DeleteByFunc(func(key string, _ En2ArView) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func cacheKeyPrefix(dbPath string) string {
	return dbPath + "\x00"
}

func cloneEn2Ar(v En2ArView) En2ArView {
	out := En2ArView{
		NoResult:   append([]string{}, v.NoResult...),
		DataResult: make(map[string]string, len(v.DataResult)),
		Tab:        v.Tab,
	}
	for en, ar := range v.DataResult {
		out.DataResult[en] = ar
	}
	return out
}

// SplitEn2Ar partitions mapping on the no_result sentinel.
func SplitEn2Ar(mapping map[string]string) En2ArView {
	view := En2ArView{
		NoResult:   []string{},
		DataResult: make(map[string]string),
	}
	for en, ar := range mapping {
		if ar == models.StatusNoResult {
			view.NoResult = append(view.NoResult, en)
		} else {
			view.DataResult[en] = ar
		}
	}
	sort.Strings(view.NoResult)
	view.Tab = En2ArTab{
		SumAll:        strconv.Itoa(len(mapping)),
		SumDataResult: strconv.Itoa(len(view.DataResult)),
		SumNoResult:   strconv.Itoa(len(view.NoResult)),
	}
	return view
}

// Close releases the report cache.
func (s *Service) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
