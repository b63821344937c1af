package main

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newTextCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "text [sentence...]",
		Short: "Redact a sentence given as arguments or on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("no text to redact")
			}

			outcome := opts.detector.ProcessText(text)
			out := cmd.OutOrStdout()

			if opts.json {
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(outcome)
			}

			printf(out, "%s\n", strings.TrimRight(outcome.MaskedText, "\n"))
			if len(outcome.Detections) == 0 {
				return nil
			}
			printf(out, "\n")
			return printCounts(out, outcome.CountByCategory())
		},
	}
}
