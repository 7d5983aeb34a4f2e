package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ArWikiCats/arwikicats-web/internal/models"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seed(t *testing.T, repo *SQLiteRepository, table string, records ...models.LogRecord) {
	t.Helper()
	if err := repo.InsertBatch(context.Background(), table, records); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
}

func rec(data, status string, count int64, ts string) models.LogRecord {
	return models.LogRecord{
		Endpoint:       "/api/" + data,
		RequestData:    data,
		ResponseStatus: status,
		ResponseTime:   0.1,
		ResponseCount:  count,
		Timestamp:      ts,
	}
}

func TestInitDB_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := repo.InitDB(ctx); err != nil {
			t.Fatalf("InitDB run %d: %v", i+1, err)
		}
	}
	for _, table := range Tables {
		var name string
		err := repo.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s does not exist: %v", table, err)
		}
	}
}

func TestLogRequest(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	fixed := time.Date(2025, 1, 27, 10, 30, 0, 0, time.Local)
	repo.now = func() time.Time { return fixed }

	if !repo.LogRequest(ctx, "/api/Category:Test", "Category:Test", "تصنيف:اختبار", 0.25, 1) {
		t.Fatal("LogRequest returned false")
	}
	if !repo.LogRequest(ctx, "/api/list", "Category:A", "no_result", 1.5, 3) {
		t.Fatal("LogRequest to list endpoint returned false")
	}

	logs, err := repo.GetLogs(ctx, LogQuery{Table: TableLogs, Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 row in logs, got %d", len(logs))
	}
	got := logs[0]
	if got.Timestamp != "2025-01-27 10:30:00" || got.DateOnly != "2025-01-27" {
		t.Errorf("timestamp/date_only = %q/%q", got.Timestamp, got.DateOnly)
	}
	if got.ResponseStatus != "تصنيف:اختبار" || got.ResponseCount != 1 {
		t.Errorf("unexpected row: %+v", got)
	}

	n, err := repo.CountAll(ctx, TableListLogs, Filters{})
	if err != nil || n != 1 {
		t.Errorf("list_logs count = %d, %v; want 1", n, err)
	}
}

func TestLogRequest_FailureReturnsFalse(t *testing.T) {
	repo := newTestRepo(t)
	repo.Close()

	if repo.LogRequest(context.Background(), "/api/x", "x", "no_result", 0.1, 1) {
		t.Fatal("expected false on a closed database")
	}
}

func TestGetLogs_Pagination(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	var records []models.LogRecord
	for i := 1; i <= 25; i++ {
		records = append(records, rec("Category:T"+string(rune('a'+i)), "no_result", int64(i), "2025-01-27 10:00:00"))
	}
	seed(t, repo, TableLogs, records...)

	tests := []struct {
		page, perPage int
		wantLen       int
		wantFirst     int64
	}{
		{1, 10, 10, 1},
		{2, 10, 10, 11},
		{3, 10, 5, 21},
		{4, 10, 0, 0},
		{0, 0, 1, 1}, // clamped to page 1, per_page 1
		{1, 1_000_000_000, 25, 1},
		{math.MaxInt, 10, 0, 0},
		{math.MaxInt / 2, MaxPerPage, 0, 0},
	}
	for _, tt := range tests {
		logs, err := repo.GetLogs(ctx, LogQuery{Page: tt.page, PerPage: tt.perPage, OrderBy: "response_count", Order: "asc"})
		if err != nil {
			t.Fatalf("GetLogs(%d,%d): %v", tt.page, tt.perPage, err)
		}
		if len(logs) != tt.wantLen {
			t.Errorf("GetLogs(%d,%d) returned %d rows, want %d", tt.page, tt.perPage, len(logs), tt.wantLen)
			continue
		}
		if tt.wantLen > 0 && logs[0].ResponseCount != tt.wantFirst {
			t.Errorf("GetLogs(%d,%d) first count = %d, want %d", tt.page, tt.perPage, logs[0].ResponseCount, tt.wantFirst)
		}
	}
}

func TestGetLogs_CapsPerPage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	records := make([]models.LogRecord, 0, MaxPerPage+20)
	for i := range MaxPerPage + 20 {
		records = append(records, rec(fmt.Sprintf("Category:T%d", i), "no_result", 1, "2025-01-27 10:00:00"))
	}
	seed(t, repo, TableLogs, records...)

	logs, err := repo.GetLogs(ctx, LogQuery{Page: 1, PerPage: 1_000_000_000})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != MaxPerPage {
		t.Errorf("GetLogs returned %d rows, want %d", len(logs), MaxPerPage)
	}
}

func TestGetLogs_CoercesTableAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seed(t, repo, TableLogs,
		rec("A", "no_result", 1, "2025-01-27 10:00:00"),
		rec("B", "no_result", 5, "2025-01-27 11:00:00"),
	)

	logs, err := repo.GetLogs(ctx, LogQuery{
		Table:   "logs; DROP TABLE logs",
		OrderBy: "response_count; --",
		Order:   "sideways",
		Page:    1,
		PerPage: 10,
	})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != 2 || logs[0].RequestData != "B" {
		t.Fatalf("expected default response_count DESC from logs, got %+v", logs)
	}
}

func TestFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seed(t, repo, TableLogs,
		rec("Category:Test_Data_Here", "تصنيف:بيانات", 2, "2025-01-27 10:00:00"),
		rec("Category:Other", "no_result", 3, "2025-01-27 11:00:00"),
		rec("Category:Old", "no_result", 4, "2025-01-26 09:00:00"),
	)

	tests := []struct {
		name      string
		f         Filters
		wantCount int64
		wantSum   int64
	}{
		{"none", Filters{}, 3, 9},
		{"all", Filters{Status: "all"}, 3, 9},
		{"exact status", Filters{Status: "no_result"}, 2, 7},
		{"category group", Filters{Status: "Category"}, 1, 2},
		{"like with spaces", Filters{Like: "Test Data"}, 1, 2},
		{"day", Filters{Day: "2025-01-26"}, 1, 4},
		{"combined", Filters{Status: "no_result", Day: "2025-01-27"}, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := repo.CountAll(ctx, TableLogs, tt.f)
			if err != nil {
				t.Fatalf("CountAll: %v", err)
			}
			if n != tt.wantCount {
				t.Errorf("CountAll = %d, want %d", n, tt.wantCount)
			}
			sum, err := repo.SumResponseCount(ctx, TableLogs, tt.f)
			if err != nil {
				t.Fatalf("SumResponseCount: %v", err)
			}
			if sum != tt.wantSum {
				t.Errorf("SumResponseCount = %d, want %d", sum, tt.wantSum)
			}
			logs, err := repo.GetLogs(ctx, LogQuery{Page: 1, PerPage: 10, Filters: tt.f})
			if err != nil {
				t.Fatalf("GetLogs: %v", err)
			}
			if int64(len(logs)) != tt.wantCount {
				t.Errorf("GetLogs returned %d rows, want %d", len(logs), tt.wantCount)
			}
		})
	}
}

func TestSumResponseCount_Empty(t *testing.T) {
	repo := newTestRepo(t)
	sum, err := repo.SumResponseCount(context.Background(), TableListLogs, Filters{})
	if err != nil {
		t.Fatalf("SumResponseCount: %v", err)
	}
	if sum != 0 {
		t.Errorf("sum = %d, want 0", sum)
	}
}

func TestGetResponseStatus(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, TableLogs,
		rec("A", "no_result", 1, ""),
		rec("B", "تصنيف:ب", 1, ""),
		rec("C", "no_result", 1, ""),
	)

	statuses, err := repo.GetResponseStatus(context.Background(), TableLogs)
	if err != nil {
		t.Fatalf("GetResponseStatus: %v", err)
	}
	want := []string{"no_result", "تصنيف:ب"}
	if !reflect.DeepEqual(statuses, want) {
		t.Errorf("statuses = %v, want %v", statuses, want)
	}
}

func TestFetchLogsByDate(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, TableListLogs,
		rec("A", "no_result", 4, "2025-01-27 10:00:00"),
		rec("B", "no_result", 6, "2025-01-27 11:00:00"),
		rec("C", "تصنيف:ج", 5, "2025-01-27 12:00:00"),
		rec("D", "no_result", 3, "2025-01-26 12:00:00"),
	)

	rows, err := repo.FetchLogsByDate(context.Background(), TableListLogs)
	if err != nil {
		t.Fatalf("FetchLogsByDate: %v", err)
	}
	want := []models.DateStatusRow{
		{DateOnly: "2025-01-26", StatusGroup: "no_result", TitleCount: 1, Count: 3},
		{DateOnly: "2025-01-27", StatusGroup: "Category", TitleCount: 1, Count: 5},
		{DateOnly: "2025-01-27", StatusGroup: "no_result", TitleCount: 2, Count: 10},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %+v\nwant %+v", rows, want)
	}
}

func TestAllLogsEn2Ar(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seed(t, repo, TableLogs,
		rec("Category:Test1", "no_result", 1, "2025-01-26 10:00:00"),
		rec("Category:Test1", "تصنيف:اختبار1", 1, "2025-01-27 10:00:00"),
		rec("Category:Test2", "no_result", 1, "2025-01-27 11:00:00"),
	)
	seed(t, repo, TableListLogs, rec("Category:Listed", "no_result", 1, "2025-01-27 11:00:00"))

	all, err := repo.AllLogsEn2Ar(ctx, "")
	if err != nil {
		t.Fatalf("AllLogsEn2Ar: %v", err)
	}
	want := map[string]string{"Category:Test1": "تصنيف:اختبار1", "Category:Test2": "no_result"}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("all time = %v, want %v", all, want)
	}

	day, err := repo.AllLogsEn2Ar(ctx, "2025-01-26")
	if err != nil {
		t.Fatalf("AllLogsEn2Ar(day): %v", err)
	}
	if !reflect.DeepEqual(day, map[string]string{"Category:Test1": "no_result"}) {
		t.Errorf("day = %v", day)
	}
}

func TestInsertBatch_UnknownTable(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.InsertBatch(context.Background(), "users", []models.LogRecord{rec("A", "no_result", 1, "")})
	if err == nil || !strings.Contains(err.Error(), "unknown table") {
		t.Fatalf("err = %v, want unknown table", err)
	}
}

func TestMigrate_LegacyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range Tables {
		_, err := raw.Exec(`CREATE TABLE ` + table + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			endpoint TEXT NOT NULL,
			request_data TEXT NOT NULL,
			response_status TEXT NOT NULL,
			response_time REAL,
			response_count INTEGER DEFAULT 1,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		)`)
		if err != nil {
			t.Fatal(err)
		}
	}
	if _, err := raw.Exec(`INSERT INTO logs (endpoint, request_data, response_status, response_time, response_count, timestamp)
		VALUES ('/api/a', 'A', 'no_result', 0.1, 1, '2024-12-31 23:59:59')`); err != nil {
		t.Fatal(err)
	}
	raw.Close()

	repo, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer repo.Close()
	ctx := context.Background()
	if err := repo.InitDB(ctx); err != nil {
		t.Fatalf("InitDB on legacy db: %v", err)
	}

	n, err := repo.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if n != 1 {
		t.Errorf("backfilled %d rows, want 1", n)
	}

	// Second run: duplicate column is tolerated and nothing is left to backfill.
	n, err = repo.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate rerun: %v", err)
	}
	if n != 0 {
		t.Errorf("rerun backfilled %d rows, want 0", n)
	}

	logs, err := repo.GetLogs(ctx, LogQuery{Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].DateOnly != "2024-12-31" {
		t.Fatalf("date_only not backfilled: %+v", logs)
	}
}
