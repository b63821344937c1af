package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/raaihank/pii-redactor/internal/audit"
	"github.com/raaihank/pii-redactor/internal/logger"
	"github.com/raaihank/pii-redactor/internal/privacy"
	"go.uber.org/zap"
)

// Redactor masks PII in a single text
type Redactor interface {
	ProcessText(text string) privacy.Outcome
}

// Pipeline redacts the records of a dataset with a pool of workers
type Pipeline struct {
	redactor Redactor
	workers  int
	logger   *logger.Logger
	now      func() time.Time
}

// Result holds the redacted records with their outcomes and audit trail.
// Records follows the source order and includes skipped items, so it is not
// parallel to Outcomes, which has one entry per redacted record.
type Result struct {
	Records  []Record
	Outcomes []privacy.Outcome
	Audit    []audit.Entry
	Stats    Stats
}

// NewPipeline creates a pipeline with the given number of workers
func NewPipeline(redactor Redactor, workers int, log *logger.Logger) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		redactor: redactor,
		workers:  workers,
		logger:   log.WithComponent("pipeline"),
		now:      time.Now,
	}
}

// Process redacts every record of ds. sessionID tags the audit entries.
func (p *Pipeline) Process(ctx context.Context, sessionID string, ds *Dataset) (*Result, error) {
	start := time.Now()

	p.logger.Info("Starting redaction pipeline",
		zap.String("file", ds.Name),
		zap.String("format", string(ds.Format)),
		zap.Int("records", len(ds.Records)),
		zap.Int("workers", p.workers))

	outcomes := make([]privacy.Outcome, len(ds.Records))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = p.redactor.ProcessText(ds.Records[i].Text)
			}
		}()
	}

	var cancelled error
feed:
	for i := range ds.Records {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		p.logger.Warn("Redaction pipeline cancelled", zap.Error(cancelled))
		return nil, fmt.Errorf("pipeline cancelled: %w", cancelled)
	}

	result := &Result{
		Records:  make([]Record, 0, len(ds.Records)+len(ds.Passthrough)),
		Outcomes: outcomes,
		Stats: Stats{
			Records:    len(ds.Records),
			Skipped:    ds.Skipped,
			Categories: make(map[string]int),
		},
	}

	now := p.now()
	for i, rec := range ds.Records {
		result.Audit = append(result.Audit, audit.FromOutcome(sessionID, rec.ID, audit.SourceFile, outcomes[i], now)...)
	}
	result.Stats.AuditDuration = time.Since(start)

	textField := ds.Options.withDefaults().TextField
	next, skipped := 0, ds.Passthrough
	for pos := 0; next < len(ds.Records) || len(skipped) > 0; pos++ {
		if len(skipped) > 0 && (skipped[0].Index == pos || next == len(ds.Records)) {
			result.Records = append(result.Records, passthroughRecord(skipped[0]))
			skipped = skipped[1:]
			continue
		}
		result.Records = append(result.Records, maskedRecord(ds.Records[next], textField, outcomes[next].MaskedText))
		for category, n := range outcomes[next].CountByCategory() {
			result.Stats.Categories[category] += n
			result.Stats.Detections += n
		}
		next++
	}
	result.Stats.Duration = time.Since(start)

	p.logger.Info("Redaction pipeline completed",
		zap.Int("records", result.Stats.Records),
		zap.Int("skipped", result.Stats.Skipped),
		zap.Int("detections", result.Stats.Detections),
		zap.Duration("duration", result.Stats.Duration))

	return result, nil
}

// maskedRecord copies rec with its text replaced by masked
func maskedRecord(rec Record, textField, masked string) Record {
	fields := make(map[string]any, len(rec.Fields))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	fields[textField] = masked
	return Record{ID: rec.ID, Text: masked, Fields: fields}
}

// passthroughRecord wraps a skipped source item so it is emitted unchanged
func passthroughRecord(item Passthrough) Record {
	fields, _ := item.Value.(map[string]any)
	return Record{Fields: fields, Skip: true, raw: item.Value}
}

// EncodeJSON renders redacted records as an indented JSON array of their
// source objects. Skipped items are written as they were read.
func EncodeJSON(records []Record) ([]byte, error) {
	out := make([]any, len(records))
	for i, r := range records {
		if r.Skip {
			out[i] = r.raw
			continue
		}
		out[i] = r.Fields
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return buf.Bytes(), nil
}
