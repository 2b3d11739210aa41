// Package services implements the orchestration layer of storepivot. It
// sits between callers (the CLI today) and the pivot engine, exporter and
// renderer, and owns the cross-cutting work those packages leave out.
//
// # Service Pattern
//
// PivotService follows the usual structure: dependencies are injected at
// construction and every operation takes a context.
//
//	svc, err := services.NewPivotService(cfg, telemetry, logger)
//	records, err := svc.Load(ctx, "orders.csv")
//	view, err := svc.Build(ctx, services.Request{
//	    Records:      records,
//	    GroupKeys:    []string{"status", "storeName"},
//	    Aggregations: specs,
//	})
//	rows := view.Rows(expanded)
//	artifacts, err := svc.Export(ctx, view, services.ExportRequest{
//	    Stem:    "orders",
//	    Formats: []exporter.Format{exporter.FormatCSV, exporter.FormatXLSX},
//	})
//
// # Responsibilities
//
//   - Request validation with validator/v10, mapped to AppError types
//   - A span and trace id per operation, and build and export metrics
//   - Warning when a record set exceeds the configured threshold
//   - Running CSV and spreadsheet exports concurrently, then PDF
//
// # Views
//
// A View is immutable. The expanded set belongs to the caller and is passed
// to Rows, Table and HTML on every call; ExportRows ignores it.
//
// # Testing
//
// Tests use the testutil capture handler for log assertions and a
// testify mock for the export surface:
//
//	surface := new(MockSurface)
//	surface.On("Capture", mock.Anything).Return(img, nil).Once()
package services
