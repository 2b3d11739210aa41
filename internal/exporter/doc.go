// Package exporter writes pivot exports as CSV, spreadsheet and PDF files.
//
// CSV and spreadsheet exports take pivot.ExportRows, the fully expanded
// flattening of a pivot tree, and serialize its detail rows only. Group rows
// are left out, and an export with no detail rows fails with
// errors.ErrEmptyExport.
//
// PDF exports rasterize a rendered table instead of the raw rows: a Surface
// is captured once, scaled to the page width and cut into page-high slices.
//
// Every artifact is written to a temp file next to its final path and renamed
// into place only when writing succeeds.
//
// Example usage:
//
//	exp := exporter.NewExporter("data/exports", logger, exporter.Options{BOMPrefix: true})
//	rows := pivot.NewExportRows(tree)
//
//	csvPath, err := exp.ExportCSV(ctx, rows, "sales-orders", nil)
//	xlsxPath, err := exp.ExportSpreadsheet(ctx, rows, "sales-orders", nil)
//	pdfPath, err := exp.ExportPDF(ctx, surface, "sales-orders")
package exporter
