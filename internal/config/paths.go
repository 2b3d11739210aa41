package config

import (
	"log/slog"
	"os"
	"path/filepath"

	apperrors "storepivot/internal/errors"
)

// Paths contains the resolved locations the application writes to.
// Relative config values are resolved against BaseDir.
type Paths struct {
	BaseDir     string
	ExportDir   string
	LogFile     string
	MetricsFile string
}

// ResolvePaths resolves the configured paths against base. An empty base
// means the current working directory.
func (c *Config) ResolvePaths(base string) (*Paths, error) {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, apperrors.NewConfigError("failed to get working directory", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to resolve base directory", err)
	}

	p := &Paths{
		BaseDir:   base,
		ExportDir: resolve(base, c.Export.Dir),
	}
	if c.Logging.Output != "console" {
		p.LogFile = resolve(base, c.Logging.FilePath)
	}
	if c.Telemetry.MetricsFile != "" {
		p.MetricsFile = resolve(base, c.Telemetry.MetricsFile)
	}
	return p, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// EnsureDirectories creates the export directory and the parents of the
// log and metrics files.
func (p *Paths) EnsureDirectories() error {
	directories := []string{p.ExportDir}
	if p.LogFile != "" {
		directories = append(directories, filepath.Dir(p.LogFile))
	}
	if p.MetricsFile != "" {
		directories = append(directories, filepath.Dir(p.MetricsFile))
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperrors.NewStorageError("failed to create directory", err).
				WithContext("directory", dir)
		}
	}
	return nil
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Path resolution summary",
		slog.String("base", p.BaseDir),
		slog.String("exports", p.ExportDir),
		slog.String("log_file", p.LogFile),
		slog.String("metrics_file", p.MetricsFile))
}
