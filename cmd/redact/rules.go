package main

import (
	"encoding/json"

	"github.com/olekukonko/tablewriter"
	"github.com/raaihank/pii-redactor/internal/privacy"
	"github.com/spf13/cobra"
)

type ruleRow struct {
	Name        string `json:"name"`
	Style       string `json:"style"`
	Placeholder string `json:"placeholder"`
	Pattern     string `json:"pattern"`
}

func newRulesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List enabled detection rules in application order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules := opts.detector.Registry().Rules()
			rows := make([]ruleRow, 0, len(rules))
			for _, r := range rules {
				row := ruleRow{Name: r.Name, Style: string(r.Style), Pattern: r.Pattern.String()}
				if r.Style == privacy.StyleTag {
					row.Placeholder = r.Placeholder
					if row.Placeholder == "" {
						row.Placeholder = privacy.DefaultPlaceholder
					}
				}
				rows = append(rows, row)
			}

			w := cmd.OutOrStdout()
			if opts.json {
				enc := json.NewEncoder(w)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			table := tablewriter.NewWriter(w)
			table.Header("Name", "Style", "Placeholder")
			for _, r := range rows {
				if err := table.Append(r.Name, r.Style, r.Placeholder); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}
