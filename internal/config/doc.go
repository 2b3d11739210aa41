// Package config loads application configuration.
//
// # Configuration Sources
//
// Values are layered, later sources winning:
//
//  1. Default()
//  2. A YAML file: $STOREPIVOT_CONFIG, storepivot.yaml or configs/storepivot.yaml
//  3. Environment variables with the STOREPIVOT_ prefix
//
// # Environment Variables
//
//	STOREPIVOT_LOGGING_LEVEL=debug
//	STOREPIVOT_EXPORT_DIR=/var/lib/storepivot/exports
//	STOREPIVOT_EXPORT_BOM=true
//	STOREPIVOT_PIVOT_TIME_ZONE=Asia/Baghdad
//	STOREPIVOT_RENDER_CHROME_PATH=/usr/bin/chromium
//	STOREPIVOT_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := cfg.ResolvePaths("")
package config
