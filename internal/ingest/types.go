package ingest

import (
	"path/filepath"
	"strings"
	"time"
)

// Record is one text to redact. Fields keeps the whole source object so the
// redacted output carries every original key.
type Record struct {
	ID     string         `json:"id"`
	Text   string         `json:"text"`
	Fields map[string]any `json:"fields"`
	// Skip marks an item without text or id, passed through unmasked
	Skip bool `json:"skip,omitempty"`

	raw any
}

// Passthrough is a source item that is not redacted. Index is its position
// among all items of the file.
type Passthrough struct {
	Index int
	Value any
}

// Format represents supported file formats
type Format string

const (
	FormatJSON    Format = "json"
	FormatJSONL   Format = "jsonl"
	FormatText    Format = "txt"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// DetectFormat detects the file format from the extension
func DetectFormat(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, true
	case ".jsonl", ".ndjson":
		return FormatJSONL, true
	case ".txt":
		return FormatText, true
	case ".csv":
		return FormatCSV, true
	case ".parquet":
		return FormatParquet, true
	default:
		return "", false
	}
}

// LoadOptions names the fields holding the text and the record id
type LoadOptions struct {
	TextField string
	IDField   string
}

func (o LoadOptions) withDefaults() LoadOptions {
	if o.TextField == "" {
		o.TextField = "sentence"
	}
	if o.IDField == "" {
		o.IDField = "verbatim_id"
	}
	return o
}

// Dataset is the result of loading one file
type Dataset struct {
	Name    string
	Format  Format
	Records []Record
	// Skipped counts records without text or id
	Skipped     int
	Passthrough []Passthrough
	Options LoadOptions
}

// Stats describes one pipeline run
type Stats struct {
	Records       int            `json:"records"`
	Skipped       int            `json:"skipped"`
	Detections    int            `json:"detections"`
	Categories    map[string]int `json:"categories"`
	Duration      time.Duration  `json:"duration"`
	AuditDuration time.Duration  `json:"audit_duration"`
}

// LatencyMS returns the run duration in milliseconds
func (s Stats) LatencyMS() float64 {
	return float64(s.Duration.Nanoseconds()) / 1e6
}

// AuditLatencyMS returns the time to the audit trail in milliseconds
func (s Stats) AuditLatencyMS() float64 {
	return float64(s.AuditDuration.Nanoseconds()) / 1e6
}
