package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "storepivot/internal/errors"
	"storepivot/internal/pivot"
)

// loadSpreadsheet reads records from an .xlsx workbook. The header is the
// first row with any non-blank cell; fully blank rows after it are skipped.
func (l *Loader) loadSpreadsheet(ctx context.Context, path string) ([]pivot.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	sheet := l.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, apperrors.NewInvalidInputError(
			fmt.Sprintf("workbook has no sheet %q (sheets: %s)", sheet, strings.Join(f.GetSheetList(), ", ")))
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}

	headerRow := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerRow = i
			break
		}
	}
	if headerRow < 0 {
		l.logger.WarnContext(ctx, "Workbook sheet is empty", slog.String("sheet", sheet))
		return []pivot.Record{}, nil
	}

	fields, err := headerFields(rows[headerRow])
	if err != nil {
		return nil, err
	}
	l.logger.DebugContext(ctx, "Found header row",
		slog.String("sheet", sheet),
		slog.Int("row_number", headerRow+1),
		slog.Any("fields", fields))

	records := []pivot.Record{}
	for i, row := range rows[headerRow+1:] {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blankRow(row) {
			continue
		}
		if len(row) > len(fields) {
			return nil, apperrors.NewInvalidInputError(
				fmt.Sprintf("sheet %q row %d has %d cells but the header has %d", sheet, headerRow+i+2, len(row), len(fields)))
		}
		records = append(records, rowRecord(fields, row))
	}
	return records, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
