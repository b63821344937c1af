package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/raaihank/pii-redactor/internal/privacy"
)

// Entry records one masked value
type Entry struct {
	SessionID   string    `json:"session_id" db:"session_id"`
	RecordID    string    `json:"record_id" db:"record_id"`
	Category    string    `json:"category" db:"category"`
	Original    string    `json:"original,omitempty" db:"-"`
	Masked      string    `json:"masked" db:"masked"`
	Start       int       `json:"start" db:"start_offset"`
	End         int       `json:"end" db:"end_offset"`
	Source      string    `json:"source" db:"source"`
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	Timestamp   time.Time `json:"timestamp" db:"created_at"`
}

// Source values
const (
	SourceText = "text"
	SourceFile = "file"
)

// Sink persists audit entries
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
	Close() error
}

// Counter is implemented by sinks that can report what they stored for a session
type Counter interface {
	CountByCategory(ctx context.Context, sessionID string) (map[string]int, error)
}

// Fingerprint returns the xxhash64 digest of a value as 16 hex characters
func Fingerprint(value string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(value))
}

// FromOutcome converts the detections of one redaction into audit entries
func FromOutcome(sessionID, recordID, source string, outcome privacy.Outcome, now time.Time) []Entry {
	entries := make([]Entry, 0, len(outcome.Detections))
	for _, d := range outcome.Detections {
		entries = append(entries, Entry{
			SessionID:   sessionID,
			RecordID:    recordID,
			Category:    d.Category,
			Original:    d.OriginalText,
			Masked:      d.Replacement,
			Start:       d.Start,
			End:         d.End,
			Source:      source,
			Fingerprint: Fingerprint(d.OriginalText),
			Timestamp:   now,
		})
	}
	return entries
}

// Redacted returns copies of entries with the original values removed. A
// missing fingerprint is computed before the original is dropped.
func Redacted(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if e.Fingerprint == "" {
			e.Fingerprint = Fingerprint(e.Original)
		}
		e.Original = ""
		out[i] = e
	}
	return out
}

// NopSink discards entries
type NopSink struct{}

func (NopSink) Write(context.Context, []Entry) error { return nil }

func (NopSink) Close() error { return nil }
