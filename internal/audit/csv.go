package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{"verbatim_id", "pii_type", "original", "masked", "start", "end", "source", "timestamp"}

// WriteCSV writes entries as an audit CSV. No entries produce no output.
func WriteCSV(w io.Writer, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, e := range entries {
		row := []string{
			e.RecordID,
			e.Category,
			e.Original,
			e.Masked,
			strconv.Itoa(e.Start),
			strconv.Itoa(e.End),
			e.Source,
			e.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
