package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/semaphore"

	apperrors "storepivot/internal/errors"
)

// Format names an export artifact type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Options configures an Exporter.
type Options struct {
	// BOMPrefix adds a UTF-8 BOM to CSV output for Excel compatibility.
	BOMPrefix bool
	// SheetName names the single spreadsheet sheet. Defaults to "Pivot".
	SheetName string
	// Page is the PDF page geometry. Defaults to landscape A4.
	Page PageLayout
}

// Exporter writes pivot exports into one directory.
type Exporter struct {
	dir     string
	opts    Options
	logger  *slog.Logger
	surface *semaphore.Weighted
}

// NewExporter creates an exporter writing artifacts into dir.
func NewExporter(dir string, logger *slog.Logger, opts Options) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SheetName == "" {
		opts.SheetName = DefaultSheetName
	}
	if opts.Page == (PageLayout{}) {
		opts.Page = LandscapeA4
	}
	return &Exporter{
		dir:     dir,
		opts:    opts,
		logger:  logger.With(slog.String("component", "exporter")),
		surface: semaphore.NewWeighted(1),
	}
}

// Dir returns the output directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// validateStem rejects stems that are empty or would escape the output dir.
func validateStem(stem string) error {
	if strings.TrimSpace(stem) == "" {
		return apperrors.NewInvalidInputError("export file name is empty")
	}
	if strings.ContainsAny(stem, `/\`) || stem == "." || stem == ".." {
		return apperrors.NewInvalidInputError(fmt.Sprintf("export file name %q must not contain path separators", stem)).
			WithContext("stem", stem)
	}
	return nil
}

// writeArtifact writes through a temp file in the output directory and
// renames it to stem.ext only after write succeeds. On failure nothing is
// left at the final path and the temp file is removed.
func (e *Exporter) writeArtifact(ctx context.Context, stem string, format Format, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create export directory", err)
	}

	tmp, err := os.CreateTemp(e.dir, "."+stem+"-*.tmp")
	if err != nil {
		return "", apperrors.NewStorageError("failed to create temp file", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", apperrors.NewStorageError("failed to flush export", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	finalPath := filepath.Join(e.dir, stem+"."+string(format))
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", apperrors.NewStorageError("failed to move export into place", err)
	}
	committed = true

	e.logger.InfoContext(ctx, "Export written",
		slog.String("format", string(format)),
		slog.String("path", finalPath))
	return finalPath, nil
}
