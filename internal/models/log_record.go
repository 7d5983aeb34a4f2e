package models

// Status values with special meaning in response_status.
const (
	StatusNoResult = "no_result"
	// StatusGroupCategory groups every status other than no_result.
	StatusGroupCategory = "Category"
)

// LogRecord is one logged lookup, as stored in the logs and list_logs tables.
type LogRecord struct {
	ID             int64   `json:"id"`
	Endpoint       string  `json:"endpoint"`
	RequestData    string  `json:"request_data"`
	ResponseStatus string  `json:"response_status"`
	ResponseTime   float64 `json:"response_time"`
	ResponseCount  int64   `json:"response_count"`
	Timestamp      string  `json:"timestamp"` // "2006-01-02 15:04:05"
	DateOnly       string  `json:"date_only"` // "2006-01-02", empty for legacy rows
}

// ImportRow is the JSON-lines shape accepted by the import endpoint.
// Timestamp may be RFC 3339 or "2006-01-02 15:04:05"; empty means now.
type ImportRow struct {
	Endpoint       string  `json:"endpoint"`
	RequestData    string  `json:"request_data"`
	ResponseStatus string  `json:"response_status"`
	ResponseTime   float64 `json:"response_time"`
	ResponseCount  *int64  `json:"response_count"`
	Timestamp      string  `json:"timestamp"`
}

// DateStatusRow is one (day, status group) bucket from the by-date query.
type DateStatusRow struct {
	DateOnly    string `json:"date_only"`
	StatusGroup string `json:"status_group"`
	TitleCount  int64  `json:"title_count"`
	Count       int64  `json:"count"`
}
