// Package ingest loads newline-delimited JSON log records into a log table.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ArWikiCats/arwikicats-web/internal/models"
	"github.com/ArWikiCats/arwikicats-web/internal/repository"
)

const (
	batchSize     = 1000
	maxLineLength = 1 << 20

	timeLayout = "2006-01-02 15:04:05"
)

// Result summarizes one import.
type Result struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// ParseJSONLines reads newline-delimited JSON and returns the records it
// could decode. Malformed lines are counted in skipped.
func ParseJSONLines(r io.Reader) (records []models.LogRecord, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var row models.ImportRow
		if err := json.Unmarshal(line, &row); err != nil {
			skipped++
			continue
		}
		rec, ok := toRecord(&row)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, scanner.Err()
}

func toRecord(row *models.ImportRow) (models.LogRecord, bool) {
	if row.RequestData == "" {
		return models.LogRecord{}, false
	}
	rec := models.LogRecord{
		Endpoint:       row.Endpoint,
		RequestData:    row.RequestData,
		ResponseStatus: row.ResponseStatus,
		ResponseTime:   row.ResponseTime,
		ResponseCount:  1,
	}
	if row.ResponseCount != nil {
		rec.ResponseCount = *row.ResponseCount
	}
	if row.Timestamp != "" {
		ts, err := parseTimestamp(row.Timestamp)
		if err != nil {
			return models.LogRecord{}, false
		}
		rec.Timestamp = ts.Format(timeLayout)
	}
	return rec, true
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(timeLayout, s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(time.Local), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// IngestReader parses r and inserts the records into table in batches.
func IngestReader(ctx context.Context, r io.Reader, repo repository.LogRepository, table string) (Result, error) {
	if !repository.ValidTable(table) {
		return Result{}, fmt.Errorf("ingest: unknown table %q", table)
	}
	records, skipped, err := ParseJSONLines(r)
	res := Result{Skipped: skipped}
	if err != nil {
		return res, fmt.Errorf("ingest: read: %w", err)
	}
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))
		if err := repo.InsertBatch(ctx, table, records[i:end]); err != nil {
			return res, err
		}
		res.Inserted = end
	}
	log.WithFields(log.Fields{
		"db":       repo.Path(),
		"table":    table,
		"inserted": res.Inserted,
		"skipped":  res.Skipped,
	}).Info("import finished")
	return res, nil
}

// IngestFile imports the JSON-lines file at path into table.
func IngestFile(ctx context.Context, path string, repo repository.LogRepository, table string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return IngestReader(ctx, f, repo, table)
}
