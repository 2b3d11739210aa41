// Package shared holds helpers used across storepivot packages that belong
// to no single layer.
//
// # Test Utilities
//
// The testutil subpackage provides a slog handler that captures records so
// tests can assert on what a component logged:
//
//	logger, logs := testutil.NewTestLogger(t)
//	svc, _ := services.NewPivotService(cfg, nil, logger)
//	...
//	testutil.AssertLogContains(t, logs, slog.LevelWarn, "Large record set")
//
// It should NOT contain business logic or anything imported by production
// code paths.
package shared
