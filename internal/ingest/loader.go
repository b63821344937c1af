package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/segmentio/parquet-go"
)

// ErrUnsupportedFormat is returned for files with an unknown extension
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Load parses data according to the extension of name
func Load(name string, data []byte, opts LoadOptions) (*Dataset, error) {
	format, ok := DetectFormat(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	opts = opts.withDefaults()
	ds := &Dataset{Name: name, Format: format, Options: opts}

	var objects []any
	var err error

	switch format {
	case FormatJSON, FormatJSONL:
		objects, err = parseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("JSON parsing failed: %w", err)
		}
	case FormatText:
		// Text uploads often hold JSON; plain lines otherwise
		objects, err = parseJSON(data)
		if err != nil {
			objects = parseLines(data, opts)
		}
	case FormatCSV:
		objects, err = parseCSV(data, opts)
		if err != nil {
			return nil, fmt.Errorf("CSV parsing failed: %w", err)
		}
	case FormatParquet:
		objects, err = parseParquet(data, opts)
		if err != nil {
			return nil, fmt.Errorf("Parquet parsing failed: %w", err)
		}
	}

	for i, obj := range objects {
		record, ok := toRecord(obj, opts)
		if !ok {
			ds.Skipped++
			ds.Passthrough = append(ds.Passthrough, Passthrough{Index: i, Value: obj})
			continue
		}
		ds.Records = append(ds.Records, record)
	}

	return ds, nil
}

func toRecord(item any, opts LoadOptions) (Record, bool) {
	obj, ok := item.(map[string]any)
	if !ok {
		return Record{}, false
	}
	text, _ := obj[opts.TextField].(string)
	if strings.TrimSpace(text) == "" {
		return Record{}, false
	}

	rawID, ok := obj[opts.IDField]
	if !ok || rawID == nil {
		return Record{}, false
	}
	id := fmt.Sprint(rawID)
	if id == "" {
		return Record{}, false
	}

	return Record{ID: id, Text: text, Fields: obj}, true
}

// parseJSON accepts an array of objects, a single object or JSON Lines
func parseJSON(data []byte) ([]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var whole any
	if err := decodeJSON(trimmed, &whole); err == nil {
		switch v := whole.(type) {
		case []any:
			return v, nil
		case map[string]any:
			return []any{v}, nil
		default:
			return nil, fmt.Errorf("expected an object or an array, got %T", whole)
		}
	}

	// JSON Lines: one object per non-blank line
	var objects []any
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var obj map[string]any
		if err := decodeJSON(text, &obj); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		objects = append(objects, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return objects, nil
}

// decodeJSON keeps numbers as json.Number so ids round-trip unchanged
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// parseLines turns every non-blank line into a record numbered from 1
func parseLines(data []byte, opts LoadOptions) []any {
	var objects []any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		objects = append(objects, map[string]any{
			opts.IDField:   strconv.Itoa(line),
			opts.TextField: text,
		})
	}
	return objects
}

// parseCSV reads a CSV file with a header row. Without an id column the
// 1-based row number is used.
func parseCSV(data []byte, opts LoadOptions) ([]any, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	hasText, hasID := false, false
	for i, col := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		hasText = hasText || header[i] == opts.TextField
		hasID = hasID || header[i] == opts.IDField
	}
	if !hasText {
		return nil, fmt.Errorf("CSV header has no %q column", opts.TextField)
	}

	var objects []any
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		row++

		obj := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(fields) {
				obj[col] = fields[i]
			}
		}
		if !hasID {
			obj[opts.IDField] = strconv.Itoa(row)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// parseParquet reads the text and id columns of a flat Parquet file. Without
// an id column the 1-based row number is used.
func parseParquet(data []byte, opts LoadOptions) ([]any, error) {
	reader := parquet.NewReader(bytes.NewReader(data))
	defer reader.Close()

	schema := reader.Schema()
	textCol, ok := schema.Lookup(opts.TextField)
	if !ok {
		return nil, fmt.Errorf("Parquet schema has no %q column", opts.TextField)
	}
	idCol, hasID := schema.Lookup(opts.IDField)

	var objects []any
	rows := make([]parquet.Row, 128)
	rowNum := 0
	for {
		n, err := reader.ReadRows(rows)
		for _, row := range rows[:n] {
			rowNum++
			obj := make(map[string]any, 2)
			for _, v := range row {
				switch {
				case v.IsNull():
				case v.Column() == textCol.ColumnIndex:
					obj[opts.TextField] = valueString(v)
				case hasID && v.Column() == idCol.ColumnIndex:
					obj[opts.IDField] = valueString(v)
				}
			}
			if !hasID {
				obj[opts.IDField] = strconv.Itoa(rowNum)
			}
			objects = append(objects, obj)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read Parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return objects, nil
}

func valueString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	default:
		return ""
	}
}
