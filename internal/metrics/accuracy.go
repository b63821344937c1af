package metrics

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/raaihank/pii-redactor/internal/audit"
)

// GroundTruthPrefix marks files that carry labelled spans
const GroundTruthPrefix = "ground_truth"

// Report statuses
const (
	StatusCorrect = "correct"
	StatusMissed  = "missed"
)

// TruthSpan is one labelled value in a ground-truth record
type TruthSpan struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// GroundTruthRecord is one record of a ground-truth file
type GroundTruthRecord struct {
	ID          string      `json:"verbatim_id"`
	Sentence    string      `json:"sentence"`
	GroundTruth []TruthSpan `json:"ground_truth"`
}

// ReportRow states whether one labelled value was masked
type ReportRow struct {
	RecordID string `json:"verbatim_id"`
	Type     string `json:"ground_truth_type"`
	Value    string `json:"ground_truth_value"`
	Status   string `json:"status"`
}

// labels used by ground-truth files for built-in categories
var typeAliases = map[string]string{
	"DOB":     "DATE",
	"ADDRESS": "STREET_ADDRESS",
	"IP":      "IP_ADDRESS",
	"CARD":    "CREDIT_CARD",
	"ZIP":     "POSTAL_CODE",
}

func normalizeType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return t
}

// IsGroundTruthFile reports whether name should be evaluated against its labels
func IsGroundTruthFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), GroundTruthPrefix)
}

// ParseGroundTruth decodes a JSON array of labelled records. Record ids may
// be strings or numbers.
func ParseGroundTruth(data []byte) ([]GroundTruthRecord, error) {
	var raw []struct {
		ID          any         `json:"verbatim_id"`
		Sentence    string      `json:"sentence"`
		GroundTruth []TruthSpan `json:"ground_truth"`
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse ground truth: %w", err)
	}

	records := make([]GroundTruthRecord, 0, len(raw))
	for _, r := range raw {
		id := ""
		if r.ID != nil {
			id = fmt.Sprint(r.ID)
		}
		records = append(records, GroundTruthRecord{ID: id, Sentence: r.Sentence, GroundTruth: r.GroundTruth})
	}
	return records, nil
}

type labelled struct {
	typ   string
	value string
}

// Evaluate compares the (type, value) pairs found per record with the labels
func Evaluate(truth []GroundTruthRecord, entries []audit.Entry) (Accuracy, []ReportRow) {
	predicted := make(map[string]map[labelled]bool)
	for _, e := range entries {
		set, ok := predicted[e.RecordID]
		if !ok {
			set = make(map[labelled]bool)
			predicted[e.RecordID] = set
		}
		set[labelled{typ: normalizeType(e.Category), value: e.Original}] = true
	}

	var acc Accuracy
	var rows []ReportRow

	for _, rec := range truth {
		expected := make(map[labelled]bool, len(rec.GroundTruth))
		for _, span := range rec.GroundTruth {
			expected[labelled{typ: normalizeType(span.Type), value: span.Value}] = true
		}
		found := predicted[rec.ID]

		for l := range expected {
			if found[l] {
				acc.TP++
			} else {
				acc.FN++
			}
		}
		for l := range found {
			if !expected[l] {
				acc.FP++
			}
		}

		for _, span := range rec.GroundTruth {
			l := labelled{typ: normalizeType(span.Type), value: span.Value}
			status := StatusMissed
			if found[l] {
				status = StatusCorrect
			}
			rows = append(rows, ReportRow{RecordID: rec.ID, Type: l.typ, Value: span.Value, Status: status})
		}
	}

	if acc.TP+acc.FP > 0 {
		acc.Precision = float64(acc.TP) / float64(acc.TP+acc.FP)
	}
	if acc.TP+acc.FN > 0 {
		acc.Recall = float64(acc.TP) / float64(acc.TP+acc.FN)
	}
	if acc.Precision+acc.Recall > 0 {
		acc.F1 = 2 * acc.Precision * acc.Recall / (acc.Precision + acc.Recall)
	}

	return acc, rows
}

// WriteReportCSV writes the correct/missed report
func WriteReportCSV(w io.Writer, rows []ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"verbatim_id", "ground_truth_type", "ground_truth_value", "status"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.RecordID, r.Type, r.Value, r.Status}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
