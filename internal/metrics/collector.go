package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/raaihank/pii-redactor/internal/logger"
	"github.com/raaihank/pii-redactor/internal/privacy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "pii-redactor"

type instruments struct {
	redactions metric.Int64Counter
	detections metric.Int64Counter
	files      metric.Int64Counter
	latency    metric.Float64Histogram
}

func newInstruments() instruments {
	meter := otel.Meter(meterName)
	redactions, _ := meter.Int64Counter("pii_redactions_total",
		metric.WithDescription("Texts and file records redacted"))
	detections, _ := meter.Int64Counter("pii_detections_total",
		metric.WithDescription("Masked values by category"))
	files, _ := meter.Int64Counter("pii_files_processed_total")
	latency, _ := meter.Float64Histogram("pii_redaction_latency_ms",
		metric.WithUnit("ms"))
	return instruments{redactions: redactions, detections: detections, files: files, latency: latency}
}

// Collector records per-session samples and process-wide instruments
type Collector struct {
	store  Store
	logger *logger.Logger
	inst   instruments
	now    func() time.Time
}

// NewCollector creates a collector writing to store
func NewCollector(store Store, log *logger.Logger) *Collector {
	return &Collector{
		store:  store,
		logger: log.WithComponent("metrics"),
		inst:   newInstruments(),
		now:    time.Now,
	}
}

func (c *Collector) countDetections(ctx context.Context, source string, counts map[string]int) {
	for category, n := range counts {
		c.inst.detections.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("category", category),
			attribute.String("source", source),
		))
	}
}

// RecordText stores a sample for one redacted text
func (c *Collector) RecordText(ctx context.Context, sessionID string, outcome privacy.Outcome) error {
	counts := outcome.CountByCategory()

	c.inst.redactions.Add(ctx, 1, metric.WithAttributes(attribute.String("source", "text")))
	c.inst.latency.Record(ctx, outcome.LatencyMS, metric.WithAttributes(attribute.String("source", "text")))
	c.countDetections(ctx, "text", counts)

	return c.append(ctx, sessionID, Sample{
		Kind:       KindText,
		Timestamp:  c.now(),
		LatencyMS:  outcome.LatencyMS,
		PIICount:   len(outcome.Detections),
		Categories: counts,
	})
}

// RecordFile stores a sample for one processed file
func (c *Collector) RecordFile(ctx context.Context, sessionID string, file FileSample) error {
	c.inst.files.Add(ctx, 1)
	c.inst.redactions.Add(ctx, int64(file.Records), metric.WithAttributes(attribute.String("source", "file")))
	c.inst.latency.Record(ctx, file.LatencyMS, metric.WithAttributes(attribute.String("source", "file")))
	c.countDetections(ctx, "file", file.Categories)

	return c.append(ctx, sessionID, Sample{
		Kind:           KindFile,
		Timestamp:      c.now(),
		LatencyMS:      file.LatencyMS,
		PIICount:       file.PIICount,
		Records:        file.Records,
		FileName:       file.FileName,
		AuditLatencyMS: file.AuditLatencyMS,
		Categories:     file.Categories,
	})
}

// RecordAccuracy stores a ground-truth evaluation
func (c *Collector) RecordAccuracy(ctx context.Context, sessionID string, acc Accuracy) error {
	c.logger.Info("Ground truth evaluated",
		zap.String("file", acc.FileName),
		zap.Float64("precision", acc.Precision),
		zap.Float64("recall", acc.Recall),
		zap.Float64("f1", acc.F1))

	return c.append(ctx, sessionID, Sample{
		Kind:      KindAccuracy,
		Timestamp: c.now(),
		FileName:  acc.FileName,
		Accuracy:  &acc,
	})
}

func (c *Collector) append(ctx context.Context, sessionID string, sample Sample) error {
	if err := c.store.Append(ctx, sessionID, sample); err != nil {
		return fmt.Errorf("failed to record %s sample: %w", sample.Kind, err)
	}
	return nil
}

// Summary aggregates a session's samples
func (c *Collector) Summary(ctx context.Context, sessionID string) (Summary, error) {
	samples, err := c.store.Samples(ctx, sessionID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load session samples: %w", err)
	}
	return Summarize(sessionID, samples), nil
}

// Reset drops a session's samples
func (c *Collector) Reset(ctx context.Context, sessionID string) error {
	return c.store.Delete(ctx, sessionID)
}

// Summarize aggregates samples the same way for every store
func Summarize(sessionID string, samples []Sample) Summary {
	summary := Summary{SessionID: sessionID, Categories: make(map[string]int)}

	var text TextSummary
	var file FileSummary
	var textLatency, fileLatency, densitySum float64
	var textPII, filePII, fileRecords int

	for _, s := range samples {
		switch s.Kind {
		case KindText:
			text.TextsProcessed++
			textLatency += s.LatencyMS
			if s.LatencyMS > text.MaxLatencyMS {
				text.MaxLatencyMS = s.LatencyMS
			}
			textPII += s.PIICount
		case KindFile:
			file.FilesProcessed++
			fileLatency += s.LatencyMS
			if s.LatencyMS > file.MaxLatencyMS {
				file.MaxLatencyMS = s.LatencyMS
			}
			densitySum += s.PIIDensity()
			filePII += s.PIICount
			fileRecords += s.Records
		case KindAccuracy:
			if s.Accuracy != nil {
				summary.Accuracy = &AccuracySummary{
					FileName:  s.Accuracy.FileName,
					Precision: s.Accuracy.Precision,
					Recall:    s.Accuracy.Recall,
					F1:        s.Accuracy.F1,
				}
			}
		}

		for category, n := range s.Categories {
			summary.Categories[category] += n
		}
	}

	if text.TextsProcessed > 0 {
		n := float64(text.TextsProcessed)
		text.AvgLatencyMS = textLatency / n
		text.AvgPIIPerText = float64(textPII) / n
		summary.Text = &text
	}

	if file.FilesProcessed > 0 {
		n := float64(file.FilesProcessed)
		file.AvgLatencyMS = fileLatency / n
		file.AvgPIIDensity = densitySum / n
		if fileRecords > 0 {
			file.AvgPIIPerRecord = float64(filePII) / float64(fileRecords)
		}
		summary.File = &file
	}

	return summary
}
