package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	apperrors "storepivot/internal/errors"
	"storepivot/internal/pivot"
)

// DefaultSheetName names the single sheet of spreadsheet exports.
const DefaultSheetName = "Pivot"

// columnPadding is added to the longest value when sizing a column.
const columnPadding = 2

// excelize rejects widths above this.
const maxColumnWidth = 255

// SpreadsheetOptions configures workbook serialization.
type SpreadsheetOptions struct {
	Columns   []string
	SheetName string
}

// ExportSpreadsheet writes the detail rows of rows to <dir>/<stem>.xlsx as a
// single-sheet workbook.
func (e *Exporter) ExportSpreadsheet(ctx context.Context, rows pivot.ExportRows, stem string, columns []string) (string, error) {
	if err := validateStem(stem); err != nil {
		return "", err
	}
	details := rows.Details()
	if len(details) == 0 {
		return "", apperrors.NewEmptyExportError(string(FormatXLSX))
	}
	if columns == nil {
		columns = rows.Columns()
	}

	e.logger.InfoContext(ctx, "Writing spreadsheet export",
		slog.String("stem", stem),
		slog.String("sheet", e.opts.SheetName),
		slog.Int("record_count", len(details)))

	return e.writeArtifact(ctx, stem, FormatXLSX, func(w io.Writer) error {
		return WriteSpreadsheet(w, details, SpreadsheetOptions{Columns: columns, SheetName: e.opts.SheetName})
	})
}

// WriteSpreadsheet writes records as a workbook with a header row. Each column
// is as wide as its longest value, header included, plus padding.
func WriteSpreadsheet(w io.Writer, records []pivot.Record, opts SpreadsheetOptions) error {
	if len(records) == 0 {
		return apperrors.NewEmptyExportError(string(FormatXLSX))
	}
	sheet := opts.SheetName
	if sheet == "" {
		sheet = DefaultSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return apperrors.NewStorageError("failed to name sheet", err)
	}

	widths := make([]int, len(opts.Columns))
	header := make([]interface{}, len(opts.Columns))
	for i, c := range opts.Columns {
		header[i] = c
		widths[i] = utf8.RuneCountInString(c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return apperrors.NewStorageError("failed to write header row", err)
	}

	row := make([]interface{}, len(opts.Columns))
	for i, r := range records {
		for j, c := range opts.Columns {
			row[j] = spreadsheetValue(r[c])
			if n := utf8.RuneCountInString(pivot.CellString(r[c])); n > widths[j] {
				widths[j] = n
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.NewStorageError("failed to address row", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write row %d", i), err)
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return apperrors.NewStorageError("failed to address column", err)
		}
		if err := f.SetColWidth(sheet, col, col, columnWidth(width)); err != nil {
			return apperrors.NewStorageError("failed to size column", err)
		}
	}

	if err := f.Write(w); err != nil {
		return apperrors.NewStorageError("failed to write workbook", err)
	}
	return nil
}

func columnWidth(longest int) float64 {
	w := longest + columnPadding
	if w > maxColumnWidth {
		w = maxColumnWidth
	}
	return float64(w)
}
