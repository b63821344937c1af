package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/logger"
	"github.com/raaihank/pii-redactor/internal/privacy"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// options shared by every command
type options struct {
	configPath string
	json       bool
	verbose    bool

	cfg      *config.Config
	log      *logger.Logger
	detector *privacy.Detector
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "redact",
		Short:         "Mask PII in text and data files",
		Long:          "redact detects emails, phone numbers, card numbers and other PII in text or in JSON, CSV, TXT and Parquet files and masks them.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "emit JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(newTextCmd(opts), newFileCmd(opts), newRulesCmd(opts))
	return root
}

func (o *options) init() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	o.log = logger.NewNop()
	if o.verbose {
		o.log, err = logger.New(logger.Config{Level: "debug", Format: "console"})
		if err != nil {
			return err
		}
	}

	o.detector, err = privacy.New(cfg.Redaction, o.log)
	return err
}

// printCounts renders a per-category table, largest first
func printCounts(w io.Writer, counts map[string]int) error {
	categories := make([]string, 0, len(counts))
	total := 0
	for category, n := range counts {
		categories = append(categories, category)
		total += n
	}
	sort.Slice(categories, func(i, j int) bool {
		if counts[categories[i]] != counts[categories[j]] {
			return counts[categories[i]] > counts[categories[j]]
		}
		return categories[i] < categories[j]
	})

	table := tablewriter.NewWriter(w)
	table.Header("Category", "Count")
	for _, category := range categories {
		if err := table.Append(category, strconv.Itoa(counts[category])); err != nil {
			return err
		}
	}
	table.Footer("Total", strconv.Itoa(total))
	return table.Render()
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
