package metrics

import (
	"context"
	"time"
)

// Kind identifies what a sample measured
type Kind string

const (
	KindText     Kind = "text"
	KindFile     Kind = "file"
	KindAccuracy Kind = "accuracy"
)

// Sample is one measurement recorded for a session
type Sample struct {
	Kind           Kind           `json:"kind"`
	Timestamp      time.Time      `json:"timestamp"`
	LatencyMS      float64        `json:"latency_ms"`
	PIICount       int            `json:"pii_count"`
	Records        int            `json:"records,omitempty"`
	FileName       string         `json:"file_name,omitempty"`
	AuditLatencyMS float64        `json:"audit_latency_ms,omitempty"`
	Categories     map[string]int `json:"categories,omitempty"`
	Accuracy       *Accuracy      `json:"accuracy,omitempty"`
}

// PIIDensity returns detections per record for file samples
func (s Sample) PIIDensity() float64 {
	if s.Records == 0 {
		return 0
	}
	return float64(s.PIICount) / float64(s.Records)
}

// Accuracy holds the result of comparing detections with ground truth
type Accuracy struct {
	FileName  string  `json:"file_name"`
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	FN        int     `json:"fn"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// FileSample describes one processed file
type FileSample struct {
	FileName       string
	Records        int
	PIICount       int
	LatencyMS      float64
	AuditLatencyMS float64
	Categories     map[string]int
}

// TextSummary aggregates text samples
type TextSummary struct {
	TextsProcessed int     `json:"texts_processed"`
	AvgLatencyMS   float64 `json:"avg_latency_ms"`
	MaxLatencyMS   float64 `json:"max_latency_ms"`
	AvgPIIPerText  float64 `json:"avg_pii_per_text"`
}

// FileSummary aggregates file samples
type FileSummary struct {
	FilesProcessed  int     `json:"files_processed"`
	AvgLatencyMS    float64 `json:"avg_latency_ms"`
	MaxLatencyMS    float64 `json:"max_latency_ms"`
	AvgPIIDensity   float64 `json:"avg_pii_density"`
	AvgPIIPerRecord float64 `json:"avg_pii_per_record"`
}

// AccuracySummary reports the latest accuracy evaluation
type AccuracySummary struct {
	FileName  string  `json:"file_name"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
}

// Summary is the per-session metrics view. Sections without samples are nil.
type Summary struct {
	SessionID  string           `json:"session_id"`
	Text       *TextSummary     `json:"text,omitempty"`
	File       *FileSummary     `json:"file,omitempty"`
	Accuracy   *AccuracySummary `json:"accuracy,omitempty"`
	Categories map[string]int   `json:"categories"`
}

// Store keeps samples per session
type Store interface {
	Append(ctx context.Context, sessionID string, sample Sample) error
	Samples(ctx context.Context, sessionID string) ([]Sample, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}
