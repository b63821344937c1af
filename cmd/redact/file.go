package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/raaihank/pii-redactor/internal/audit"
	"github.com/raaihank/pii-redactor/internal/ingest"
	"github.com/raaihank/pii-redactor/internal/metrics"
	"github.com/spf13/cobra"
)

type fileFlags struct {
	out       string
	auditPath string
	report    string
	workers   int
}

// fileSummary is printed with --json
type fileSummary struct {
	File       string            `json:"file"`
	Output     string            `json:"output"`
	Records    int               `json:"records"`
	Skipped    int               `json:"skipped"`
	Detections int               `json:"detections"`
	Categories map[string]int    `json:"categories"`
	LatencyMS  float64           `json:"latency_ms"`
	Accuracy   *metrics.Accuracy `json:"accuracy,omitempty"`
}

func newFileCmd(opts *options) *cobra.Command {
	flags := &fileFlags{}

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Redact a JSON, JSONL, TXT, CSV or Parquet file",
		Long: "Redact every record of a file and write the result as JSON. Files whose name starts with " +
			metrics.GroundTruthPrefix + " are also scored against their labels.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(cmd, opts, flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "output path (default <name>_redacted.json)")
	cmd.Flags().StringVar(&flags.auditPath, "audit", "", "write the audit log CSV to this path")
	cmd.Flags().StringVar(&flags.report, "report", "", "write the ground truth report CSV to this path")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "worker count (0 = worker_count from config)")
	return cmd
}

func runFile(cmd *cobra.Command, opts *options, flags *fileFlags, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	ds, err := ingest.Load(name, data, ingest.LoadOptions{
		TextField: opts.cfg.Redaction.TextField,
		IDField:   opts.cfg.Redaction.IDField,
	})
	if err != nil {
		return err
	}

	workers := flags.workers
	if workers <= 0 {
		workers = opts.cfg.Redaction.WorkerCount
	}
	pipeline := ingest.NewPipeline(opts.detector, workers, opts.log)

	result, err := pipeline.Process(cmd.Context(), uuid.NewString(), ds)
	if err != nil {
		return err
	}

	encoded, err := ingest.EncodeJSON(result.Records)
	if err != nil {
		return err
	}

	out := flags.out
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + "_redacted.json"
	}
	if err := os.WriteFile(out, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if flags.auditPath != "" {
		var buf bytes.Buffer
		if err := audit.WriteCSV(&buf, result.Audit); err != nil {
			return err
		}
		// Owner-only: the audit log holds the masked values
		if err := os.WriteFile(flags.auditPath, buf.Bytes(), 0o600); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
	}

	summary := fileSummary{
		File:       path,
		Output:     out,
		Records:    result.Stats.Records,
		Skipped:    result.Stats.Skipped,
		Detections: result.Stats.Detections,
		Categories: result.Stats.Categories,
		LatencyMS:  result.Stats.LatencyMS(),
	}

	if metrics.IsGroundTruthFile(name) {
		truth, err := metrics.ParseGroundTruth(data)
		if err != nil {
			return err
		}
		acc, rows := metrics.Evaluate(truth, result.Audit)
		acc.FileName = name
		summary.Accuracy = &acc

		if flags.report != "" {
			var buf bytes.Buffer
			if err := metrics.WriteReportCSV(&buf, rows); err != nil {
				return err
			}
			if err := os.WriteFile(flags.report, buf.Bytes(), 0o600); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
		}
	}

	w := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	printf(w, "%s: %d records, %d skipped, %d detections in %.1f ms\n",
		name, summary.Records, summary.Skipped, summary.Detections, summary.LatencyMS)
	printf(w, "wrote %s\n", out)
	if summary.Accuracy != nil {
		printf(w, "precision %.3f  recall %.3f  f1 %.3f\n",
			summary.Accuracy.Precision, summary.Accuracy.Recall, summary.Accuracy.F1)
	}
	if summary.Detections == 0 {
		return nil
	}
	printf(w, "\n")
	return printCounts(w, summary.Categories)
}
