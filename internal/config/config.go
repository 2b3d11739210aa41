package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "storepivot/internal/errors"
)

// EnvPrefix namespaces every environment variable, e.g. STOREPIVOT_EXPORT_DIR.
const EnvPrefix = "STOREPIVOT"

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Pivot     PivotConfig     `yaml:"pivot" envconfig:"PIVOT"`
	Render    RenderConfig    `yaml:"render" envconfig:"RENDER"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// ExportConfig controls where and how artifacts are written
type ExportConfig struct {
	Dir          string  `yaml:"dir" envconfig:"DIR"`
	BOM          bool    `yaml:"bom" envconfig:"BOM"`
	SheetName    string  `yaml:"sheet_name" envconfig:"SHEET_NAME"`
	PageMarginMM float64 `yaml:"page_margin_mm" envconfig:"PAGE_MARGIN_MM"`
}

// PivotConfig controls tree construction
type PivotConfig struct {
	DateLayout          string `yaml:"date_layout" envconfig:"DATE_LAYOUT"`
	TimeZone            string `yaml:"time_zone" envconfig:"TIME_ZONE"`
	WarnRecordThreshold int    `yaml:"warn_record_threshold" envconfig:"WARN_RECORD_THRESHOLD"`
}

// RenderConfig controls the headless browser used for PDF capture
type RenderConfig struct {
	ChromePath    string        `yaml:"chrome_path" envconfig:"CHROME_PATH"`
	Headless      bool          `yaml:"headless" envconfig:"HEADLESS"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	ViewportWidth int           `yaml:"viewport_width" envconfig:"VIEWPORT_WIDTH"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	Tracing       bool   `yaml:"tracing" envconfig:"TRACING"`
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	Metrics       bool   `yaml:"metrics" envconfig:"METRICS"`
	MetricsFile   string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/storepivot.log",
		},
		Export: ExportConfig{
			Dir:          "data/exports",
			BOM:          false,
			SheetName:    "Pivot",
			PageMarginMM: 10,
		},
		Pivot: PivotConfig{
			DateLayout:          "1/2/2006",
			TimeZone:            "Local",
			WarnRecordThreshold: 10000,
		},
		Render: RenderConfig{
			Headless:      true,
			Timeout:       60 * time.Second,
			ViewportWidth: 1400,
		},
		Telemetry: TelemetryConfig{
			Tracing:       false,
			TraceExporter: "none",
			Metrics:       true,
		},
	}
}

// Load builds the configuration from defaults, then the first config file
// found, then environment variables. Later sources win.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file; an empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config file", err).
				WithContext("path", path)
		}
	}

	// No default tags: unset variables leave file and default values alone.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file at path onto cfg. Keys absent from
// the file keep their current values.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// Validate checks ranges and enumerations and normalizes case.
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level", c.Logging.Level, "debug, info, warn or error")
	}
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	switch c.Logging.Format {
	case "json", "text":
	default:
		return invalid("logging.format", c.Logging.Format, "json or text")
	}
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	switch c.Logging.Output {
	case "console":
	case "file", "both":
		if c.Logging.FilePath == "" {
			return invalid("logging.file_path", "", "a path when output is file or both")
		}
	default:
		return invalid("logging.output", c.Logging.Output, "console, file or both")
	}

	if strings.TrimSpace(c.Export.Dir) == "" {
		return invalid("export.dir", c.Export.Dir, "a directory")
	}
	if c.Export.SheetName == "" || len([]rune(c.Export.SheetName)) > 31 {
		return invalid("export.sheet_name", c.Export.SheetName, "1 to 31 characters")
	}
	if c.Export.PageMarginMM < 0 || c.Export.PageMarginMM >= 105 {
		return invalid("export.page_margin_mm", fmt.Sprint(c.Export.PageMarginMM), "between 0 and 105")
	}

	if c.Pivot.DateLayout == "" {
		return invalid("pivot.date_layout", "", "a Go time layout")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Pivot.WarnRecordThreshold < 0 {
		return invalid("pivot.warn_record_threshold", fmt.Sprint(c.Pivot.WarnRecordThreshold), "zero or more")
	}

	if c.Render.Timeout <= 0 {
		return invalid("render.timeout", c.Render.Timeout.String(), "a positive duration")
	}
	if c.Render.ViewportWidth <= 0 {
		return invalid("render.viewport_width", fmt.Sprint(c.Render.ViewportWidth), "a positive width")
	}

	c.Telemetry.TraceExporter = strings.ToLower(c.Telemetry.TraceExporter)
	switch c.Telemetry.TraceExporter {
	case "none", "stdout":
	default:
		return invalid("telemetry.trace_exporter", c.Telemetry.TraceExporter, "none or stdout")
	}

	return nil
}

// Location resolves Pivot.TimeZone.
func (c *Config) Location() (*time.Location, error) {
	if c.Pivot.TimeZone == "" || c.Pivot.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Pivot.TimeZone)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown pivot.time_zone %q", c.Pivot.TimeZone), err)
	}
	return loc, nil
}

func invalid(key, value, want string) error {
	return apperrors.NewConfigError(fmt.Sprintf("invalid %s %q: want %s", key, value, want), nil).
		WithContext("key", key)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	locations := []string{
		"storepivot.yaml",
		"configs/storepivot.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}
