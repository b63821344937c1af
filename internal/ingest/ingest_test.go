package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/logger"
	"github.com/raaihank/pii-redactor/internal/privacy"
	"github.com/segmentio/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
		ok   bool
	}{
		{"data.json", FormatJSON, true},
		{"data.JSONL", FormatJSONL, true},
		{"data.ndjson", FormatJSONL, true},
		{"notes.txt", FormatText, true},
		{"rows.csv", FormatCSV, true},
		{"rows.parquet", FormatParquet, true},
		{"archive.zip", "", false},
	}

	for _, tt := range tests {
		got, ok := DetectFormat(tt.name)
		assert.Equal(t, tt.want, got, tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
	}
}

func TestLoadJSON(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		data := `[
			{"verbatim_id": 1, "sentence": "call 555-123-4567", "channel": "phone"},
			{"verbatim_id": 2, "sentence": "   "},
			{"sentence": "no id"},
			{"verbatim_id": "x3", "sentence": "mail jane@corp.io"}
		]`
		ds, err := Load("data.json", []byte(data), LoadOptions{})
		require.NoError(t, err)

		require.Len(t, ds.Records, 2)
		assert.Equal(t, 2, ds.Skipped)
		assert.Equal(t, "1", ds.Records[0].ID)
		assert.Equal(t, "call 555-123-4567", ds.Records[0].Text)
		assert.Equal(t, "phone", ds.Records[0].Fields["channel"])
		assert.Equal(t, "x3", ds.Records[1].ID)

		require.Len(t, ds.Passthrough, 2)
		assert.Equal(t, 1, ds.Passthrough[0].Index)
		assert.Equal(t, 2, ds.Passthrough[1].Index)
	})

	t.Run("single object", func(t *testing.T) {
		ds, err := Load("one.json", []byte(`{"verbatim_id": 7, "sentence": "hello"}`), LoadOptions{})
		require.NoError(t, err)
		require.Len(t, ds.Records, 1)
		assert.Equal(t, "7", ds.Records[0].ID)
	})

	t.Run("lines fallback", func(t *testing.T) {
		data := "{\"verbatim_id\": 1, \"sentence\": \"a\"}\n\n{\"verbatim_id\": 2, \"sentence\": \"b\"}\n"
		ds, err := Load("data.json", []byte(data), LoadOptions{})
		require.NoError(t, err)
		require.Len(t, ds.Records, 2)
		assert.Equal(t, "b", ds.Records[1].Text)
	})

	t.Run("custom fields", func(t *testing.T) {
		data := `{"id": "r1", "body": "text here"}`
		ds, err := Load("data.jsonl", []byte(data), LoadOptions{TextField: "body", IDField: "id"})
		require.NoError(t, err)
		require.Len(t, ds.Records, 1)
		assert.Equal(t, "r1", ds.Records[0].ID)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := Load("data.json", []byte("{not json"), LoadOptions{})
		assert.Error(t, err)
	})
}

func TestLoadText(t *testing.T) {
	ds, err := Load("notes.txt", []byte("first line\n\nthird line\r\n"), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, "1", ds.Records[0].ID)
	assert.Equal(t, "3", ds.Records[1].ID)
	assert.Equal(t, "third line", ds.Records[1].Text)

	// JSON content in a .txt upload is still read as records
	ds, err = Load("upload.txt", []byte(`[{"verbatim_id": 9, "sentence": "hi"}]`), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, "9", ds.Records[0].ID)
}

func TestLoadCSV(t *testing.T) {
	data := "verbatim_id,sentence,agent\n10,\"call 555-123-4567, please\",amy\n11,,bob\n"
	ds, err := Load("rows.csv", []byte(data), LoadOptions{})
	require.NoError(t, err)

	require.Len(t, ds.Records, 1)
	assert.Equal(t, 1, ds.Skipped)
	assert.Equal(t, "10", ds.Records[0].ID)
	assert.Equal(t, "call 555-123-4567, please", ds.Records[0].Text)
	assert.Equal(t, "amy", ds.Records[0].Fields["agent"])

	noID, err := Load("rows.csv", []byte("sentence\nhello\nworld\n"), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, noID.Records, 2)
	assert.Equal(t, "2", noID.Records[1].ID)

	_, err = Load("rows.csv", []byte("body\nhello\n"), LoadOptions{})
	assert.Error(t, err)
}

type parquetRow struct {
	VerbatimID int64  `parquet:"verbatim_id"`
	Sentence   string `parquet:"sentence"`
}

func TestLoadParquet(t *testing.T) {
	var buf bytes.Buffer
	writer := parquet.NewWriter(&buf)
	for _, row := range []parquetRow{
		{VerbatimID: 100, Sentence: "mail jane@corp.io"},
		{VerbatimID: 101, Sentence: ""},
		{VerbatimID: 102, Sentence: "ssn 123-45-6789"},
	} {
		require.NoError(t, writer.Write(row))
	}
	require.NoError(t, writer.Close())

	ds, err := Load("rows.parquet", buf.Bytes(), LoadOptions{})
	require.NoError(t, err)

	require.Len(t, ds.Records, 2)
	assert.Equal(t, 1, ds.Skipped)
	assert.Equal(t, "100", ds.Records[0].ID)
	assert.Equal(t, "mail jane@corp.io", ds.Records[0].Text)
	assert.Equal(t, "102", ds.Records[1].ID)
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load("archive.zip", []byte("PK"), LoadOptions{})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func newTestPipeline(t *testing.T, workers int) *Pipeline {
	t.Helper()
	detector, err := privacy.New(config.GetDefaults().Redaction, logger.NewNop())
	require.NoError(t, err)
	return NewPipeline(detector, workers, logger.NewNop())
}

func TestPipelineProcess(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < 50; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		if i%2 == 0 {
			sb.WriteString(`{"verbatim_id": ` + strconv.Itoa(i) + `, "sentence": "mail user` + strconv.Itoa(i) + `@corp.io now"}`)
		} else {
			sb.WriteString(`{"verbatim_id": ` + strconv.Itoa(i) + `, "sentence": "record ` + strconv.Itoa(i) + ` is clean"}`)
		}
	}
	sb.WriteString("]")

	ds, err := Load("data.json", []byte(sb.String()), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, ds.Records, 50)

	result, err := newTestPipeline(t, 8).Process(context.Background(), "sess", ds)
	require.NoError(t, err)

	require.Len(t, result.Records, 50)
	for i, rec := range result.Records {
		assert.Equal(t, strconv.Itoa(i), rec.ID, "order preserved")
		if i%2 == 0 {
			assert.Equal(t, "mail [EMAIL_REDACTED] now", rec.Text)
			assert.Equal(t, "mail [EMAIL_REDACTED] now", rec.Fields["sentence"])
		} else {
			assert.Equal(t, ds.Records[i].Text, rec.Text)
		}
	}

	assert.Equal(t, 25, result.Stats.Detections)
	assert.Equal(t, map[string]int{"EMAIL": 25}, result.Stats.Categories)
	require.Len(t, result.Audit, 25)
	assert.Equal(t, "0", result.Audit[0].RecordID)
	assert.Equal(t, "sess", result.Audit[0].SessionID)
	assert.Equal(t, "user0@corp.io", result.Audit[0].Original)

	// source records are not modified
	assert.Equal(t, "mail user0@corp.io now", ds.Records[0].Fields["sentence"])
}

func TestPipelineKeepsSkippedRecords(t *testing.T) {
	data := `[
		{"verbatim_id": 1, "sentence": "call 555-123-4567"},
		{"verbatim_id": 2, "sentence": "   "},
		"not an object",
		{"sentence": "mail jane@corp.io, no id"},
		{"verbatim_id": 5, "sentence": "mail jane@corp.io"}
	]`
	ds, err := Load("data.json", []byte(data), LoadOptions{})
	require.NoError(t, err)

	result, err := newTestPipeline(t, 2).Process(context.Background(), "sess", ds)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.Records)
	assert.Equal(t, 3, result.Stats.Skipped)
	assert.Equal(t, 2, result.Stats.Detections)
	assert.LessOrEqual(t, result.Stats.AuditDuration, result.Stats.Duration)

	encoded, err := EncodeJSON(result.Records)
	require.NoError(t, err)

	var out []any
	require.NoError(t, json.Unmarshal(encoded, &out))
	require.Len(t, out, 5)
	assert.Equal(t, "call 5**-***-***7", out[0].(map[string]any)["sentence"])
	assert.Equal(t, "   ", out[1].(map[string]any)["sentence"])
	assert.Equal(t, "not an object", out[2])
	assert.Equal(t, "mail jane@corp.io, no id", out[3].(map[string]any)["sentence"])
	assert.Equal(t, "mail [EMAIL_REDACTED]", out[4].(map[string]any)["sentence"])
}

func TestPipelineCancelled(t *testing.T) {
	ds := &Dataset{Name: "x.json", Records: []Record{{ID: "1", Text: "a"}, {ID: "2", Text: "b"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(t, 1).Process(ctx, "sess", ds)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeJSON(t *testing.T) {
	records := []Record{
		{ID: "1", Fields: map[string]any{"verbatim_id": json.Number("1"), "sentence": "<masked>"}},
	}

	data, err := EncodeJSON(records)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sentence": "<masked>"`)
	assert.Contains(t, string(data), `"verbatim_id": 1`)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 1)
}
