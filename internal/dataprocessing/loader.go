package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "storepivot/internal/errors"
	"storepivot/internal/pivot"
)

// SourceFormat is a record file format, taken from the file extension.
type SourceFormat string

const (
	SourceCSV  SourceFormat = "csv"
	SourceJSON SourceFormat = "json"
	SourceXLSX SourceFormat = "xlsx"
)

// ctxCheckEvery is how many rows are read between context checks.
const ctxCheckEvery = 1000

// DetectFormat maps a file extension to a SourceFormat.
func DetectFormat(path string) (SourceFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return SourceCSV, nil
	case ".json":
		return SourceJSON, nil
	case ".xlsx":
		return SourceXLSX, nil
	default:
		return "", apperrors.NewInvalidInputError(
			fmt.Sprintf("unsupported record file %q: want .csv, .json or .xlsx", filepath.Base(path)))
	}
}

// Loader reads record files into pivot records.
type Loader struct {
	logger *slog.Logger
	// Sheet selects the worksheet for .xlsx files; empty means the first.
	Sheet string
}

// NewLoader creates a loader that logs through logger.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadRecords reads path with a default Loader.
func LoadRecords(ctx context.Context, path string) ([]pivot.Record, error) {
	return NewLoader(nil).Load(ctx, path)
}

// Load reads every record in path. CSV and spreadsheet cells are kept as
// strings and empty cells become missing values; JSON numbers are kept as
// json.Number so no precision is lost before aggregation.
func (l *Loader) Load(ctx context.Context, path string) ([]pivot.Record, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var records []pivot.Record
	switch format {
	case SourceXLSX:
		records, err = l.loadSpreadsheet(ctx, path)
	default:
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, apperrors.NewStorageError("failed to open record file", openErr).
				WithContext("path", path)
		}
		defer f.Close()
		if format == SourceCSV {
			records, err = ReadCSV(ctx, f)
		} else {
			records, err = ReadJSON(ctx, f)
		}
	}
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "Loaded records",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("record_count", len(records)))
	return records, nil
}

// ReadCSV reads a header row followed by data rows. Every row must have as
// many fields as the header.
func ReadCSV(ctx context.Context, r io.Reader) ([]pivot.Record, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return []pivot.Record{}, nil
	}
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read CSV header", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	fields, err := headerFields(header)
	if err != nil {
		return nil, err
	}

	records := []pivot.Record{}
	for line := 2; ; line++ {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read CSV line %d", line), err)
		}
		records = append(records, rowRecord(fields, row))
	}
	return records, ctx.Err()
}

// ReadJSON reads an array of objects, or an object wrapping one under
// "records" or "data".
func ReadJSON(ctx context.Context, r io.Reader) ([]pivot.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.NewParsingError("failed to decode JSON records", err)
	}
	raw = bytes.TrimSpace(raw)

	if len(raw) > 0 && raw[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := decodeNumbers(raw, &wrapper); err != nil {
			return nil, apperrors.NewParsingError("failed to decode JSON records", err)
		}
		inner, ok := wrapper["records"]
		if !ok {
			inner, ok = wrapper["data"]
		}
		if !ok {
			return nil, apperrors.NewInvalidInputError(`JSON object has no "records" or "data" array`)
		}
		raw = inner
	}

	var items []map[string]any
	if err := decodeNumbers(raw, &items); err != nil {
		return nil, apperrors.NewParsingError("JSON records must be an array of objects", err)
	}

	records := make([]pivot.Record, 0, len(items))
	for i, item := range items {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if item == nil {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("JSON record %d is null", i))
		}
		records = append(records, pivot.Record(item))
	}
	return records, nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// headerFields validates a header row: names are trimmed and must be
// non-empty and unique.
func headerFields(header []string) ([]string, error) {
	fields := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("header column %d is empty", i+1))
		}
		if prev, dup := seen[name]; dup {
			return nil, apperrors.NewInvalidInputError(
				fmt.Sprintf("header %q appears in columns %d and %d", name, prev+1, i+1))
		}
		seen[name] = i
		fields[i] = name
	}
	return fields, nil
}

// rowRecord maps a row onto fields. Empty or absent cells become nil so
// they group as missing values.
func rowRecord(fields, row []string) pivot.Record {
	rec := make(pivot.Record, len(fields))
	for i, name := range fields {
		if i >= len(row) || row[i] == "" {
			rec[name] = nil
			continue
		}
		rec[name] = row[i]
	}
	return rec
}
