package exporter

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"

	apperrors "storepivot/internal/errors"
	"storepivot/internal/pivot"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions configures CSV serialization.
type CSVOptions struct {
	Columns   []string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// ExportCSV writes the detail rows of rows to <dir>/<stem>.csv. Group rows
// are left out. columns sets the header order; nil uses rows.Columns().
func (e *Exporter) ExportCSV(ctx context.Context, rows pivot.ExportRows, stem string, columns []string) (string, error) {
	if err := validateStem(stem); err != nil {
		return "", err
	}
	details := rows.Details()
	if len(details) == 0 {
		return "", apperrors.NewEmptyExportError(string(FormatCSV))
	}
	if columns == nil {
		columns = rows.Columns()
	}

	e.logger.InfoContext(ctx, "Writing CSV export",
		slog.String("stem", stem),
		slog.Int("record_count", len(details)),
		slog.Int("column_count", len(columns)))

	return e.writeArtifact(ctx, stem, FormatCSV, func(w io.Writer) error {
		return WriteCSV(w, details, CSVOptions{Columns: columns, BOMPrefix: e.opts.BOMPrefix})
	})
}

// WriteCSV serializes records with a header row. Every field is quoted and
// embedded quotes are doubled.
func WriteCSV(w io.Writer, records []pivot.Record, opts CSVOptions) error {
	if len(records) == 0 {
		return apperrors.NewEmptyExportError(string(FormatCSV))
	}

	bw := bufio.NewWriter(w)
	if opts.BOMPrefix {
		if _, err := bw.Write(utf8BOM); err != nil {
			return apperrors.NewStorageError("failed to write BOM", err)
		}
	}

	if err := writeQuotedLine(bw, opts.Columns); err != nil {
		return apperrors.NewStorageError("failed to write headers", err)
	}

	line := make([]string, len(opts.Columns))
	for i, r := range records {
		for j, c := range opts.Columns {
			line[j] = pivot.CellString(r[c])
		}
		if err := writeQuotedLine(bw, line); err != nil {
			return apperrors.NewStorageError("failed to write record", err).WithContext("record_index", i)
		}
	}

	if err := bw.Flush(); err != nil {
		return apperrors.NewStorageError("failed to flush CSV", err)
	}
	return nil
}

func writeQuotedLine(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quoteField(f)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
