package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"storepivot/internal/config"
	"storepivot/internal/dataprocessing"
	apperrors "storepivot/internal/errors"
	"storepivot/internal/exporter"
	"storepivot/internal/infrastructure"
	"storepivot/internal/pivot"
	"storepivot/internal/render"
	"storepivot/internal/validation"
	"storepivot/pkg/contracts/domain"
)

// Schema names accepted by SchemaByName.
const (
	SchemaSalesOrders = "sales_orders"
	SchemaNone        = "none"
)

// SchemaByName resolves a declared record schema. "none" and "" mean
// records are taken as they come.
func SchemaByName(name string) (*pivot.Schema, error) {
	switch name {
	case SchemaSalesOrders:
		return domain.SalesOrderSchema(), nil
	case SchemaNone, "":
		return nil, nil
	default:
		return nil, apperrors.NewInvalidInputError(
			fmt.Sprintf("unknown schema %q: want %s or %s", name, SchemaSalesOrders, SchemaNone)).
			WithContext("schema", name)
	}
}

// Request describes one pivot build.
type Request struct {
	Records      []pivot.Record          `json:"-" validate:"-"`
	GroupKeys    []string                `json:"groupKeys" validate:"unique,dive,required"`
	Aggregations []pivot.AggregationSpec `json:"aggregations" validate:"dive"`
	// Schema, when set, rejects undeclared fields.
	Schema *pivot.Schema `json:"-" validate:"-"`
}

// ExportRequest selects the artifacts written for a view.
type ExportRequest struct {
	Stem    string            `json:"stem" validate:"required,excludesall=/\\"`
	Formats []exporter.Format `json:"formats" validate:"min=1,unique,dive,oneof=csv xlsx pdf"`
	// Columns fixes the detail column order. nil falls back to the schema
	// order, then to the sorted union of record fields.
	Columns []string `json:"columns"`
	// Surface is required when Formats contains pdf.
	Surface exporter.Surface `json:"-" validate:"-"`
}

// Artifact is one written export file.
type Artifact struct {
	Format exporter.Format
	Path   string
}

// PivotService loads records, builds pivot views and exports them.
type PivotService struct {
	cfg      *config.Config
	loc      *time.Location
	loader   *dataprocessing.Loader
	files    *validation.FileValidator
	exporter *exporter.Exporter
	tracer   trace.Tracer
	metrics  *infrastructure.PivotMetrics
	logger   *slog.Logger
}

// NewPivotService wires a service from configuration. A nil telemetry gets
// no-op tracing and metrics.
func NewPivotService(cfg *config.Config, telemetry *infrastructure.OTelProviders, logger *slog.Logger) (*PivotService, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if telemetry == nil {
		telemetry, err = infrastructure.InitializeOTel(&infrastructure.OTelConfig{
			ServiceName:    infrastructure.ServiceName,
			ServiceVersion: infrastructure.ServiceVersion,
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	page := exporter.LandscapeA4
	page.MarginMM = cfg.Export.PageMarginMM

	logger = infrastructure.WithComponent(logger, "pivot_service")
	logger.Debug("PivotService initialized",
		slog.String("export_dir", cfg.Export.Dir),
		slog.String("date_layout", cfg.Pivot.DateLayout),
		slog.String("time_zone", loc.String()))

	return &PivotService{
		cfg:    cfg,
		loc:    loc,
		loader: dataprocessing.NewLoader(logger),
		files:  validation.NewFileValidator(logger),
		exporter: exporter.NewExporter(cfg.Export.Dir, logger, exporter.Options{
			BOMPrefix: cfg.Export.BOM,
			SheetName: cfg.Export.SheetName,
			Page:      page,
		}),
		tracer:  telemetry.Tracer,
		metrics: telemetry.Metrics,
		logger:  logger,
	}, nil
}

// ExportDir returns the directory artifacts are written to.
func (s *PivotService) ExportDir() string {
	return s.exporter.Dir()
}

// startSpan starts a span and tags ctx with a trace id for log records,
// the span's own when it is sampled.
func (s *PivotService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	if id := infrastructure.TraceIDFromContext(ctx); id != "" {
		return infrastructure.WithTraceID(ctx, id), span
	}
	return infrastructure.EnsureTraceID(ctx), span
}

// Load reads the record file at path.
func (s *PivotService) Load(ctx context.Context, path string) ([]pivot.Record, error) {
	ctx, span := s.startSpan(ctx, "pivot.load", attribute.String("pivot.source", path))
	defer span.End()

	if err := s.files.ValidateRecordFile(path); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	records, err := s.loader.Load(ctx, path)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("pivot.records", len(records)))
	return records, nil
}

// Build validates req and groups its records into a view.
func (s *PivotService) Build(ctx context.Context, req Request) (*View, error) {
	ctx, span := s.startSpan(ctx, "pivot.build",
		attribute.Int("pivot.records", len(req.Records)),
		attribute.StringSlice("pivot.group_keys", req.GroupKeys))
	defer span.End()

	start := time.Now()
	view, err := s.build(ctx, req)
	s.metrics.RecordBuild(ctx, time.Since(start), len(req.Records), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "Pivot build failed", infrastructure.ErrorAttr(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("pivot.top_level_groups", len(view.tree)))
	s.logger.InfoContext(ctx, "Pivot built",
		slog.Int("records", len(req.Records)),
		slog.Any("group_keys", req.GroupKeys),
		slog.Int("aggregations", len(req.Aggregations)),
		slog.Int("top_level_groups", len(view.tree)),
		slog.Duration("duration", time.Since(start)))
	return view, nil
}

func (s *PivotService) build(ctx context.Context, req Request) (*View, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	if limit := s.cfg.Pivot.WarnRecordThreshold; limit > 0 && len(req.Records) > limit {
		s.logger.WarnContext(ctx, "Large record set; consider aggregating upstream",
			slog.Int("records", len(req.Records)),
			slog.Int("threshold", limit))
	}

	tree, err := pivot.BuildTree(req.Records, req.GroupKeys, req.Aggregations,
		pivot.WithSchema(req.Schema),
		pivot.WithDateLayout(s.cfg.Pivot.DateLayout),
		pivot.WithLocation(s.loc))
	if err != nil {
		return nil, err
	}
	totals, err := pivot.Totals(tree, req.Aggregations)
	if err != nil {
		return nil, err
	}

	return &View{
		groupKeys: append([]string(nil), req.GroupKeys...),
		aggs:      append([]pivot.AggregationSpec(nil), req.Aggregations...),
		tree:      tree,
		totals:    totals,
		records:   len(req.Records),
		columns:   schemaColumns(req.Schema),
	}, nil
}

// Surface returns a headless-Chrome surface over the view's fully expanded
// rows, for a PDF export.
func (s *PivotService) Surface(view *View) (*render.ChromeSurface, error) {
	if view == nil {
		return nil, apperrors.NewInvalidInputError("surface needs a built view")
	}
	execPath, ok := render.FindChrome(s.cfg.Render.ChromePath)
	if !ok {
		return nil, apperrors.NewRenderError("no Chrome or Chromium binary found", nil).
			WithContext("chrome_path", s.cfg.Render.ChromePath)
	}
	html, err := view.ExportHTML()
	if err != nil {
		return nil, err
	}
	return render.NewChromeSurface(html, render.ChromeOptions{
		ExecPath:      execPath,
		Headless:      s.cfg.Render.Headless,
		Timeout:       s.cfg.Render.Timeout,
		ViewportWidth: s.cfg.Render.ViewportWidth,
	}, s.logger), nil
}

// Export writes the requested artifacts for view. CSV and spreadsheet run
// concurrently; PDF runs after both succeed. The first failure is returned
// along with the artifacts written before it.
func (s *PivotService) Export(ctx context.Context, view *View, req ExportRequest) ([]Artifact, error) {
	ctx, span := s.startSpan(ctx, "pivot.export",
		attribute.String("pivot.stem", req.Stem),
		attribute.Int("pivot.formats", len(req.Formats)))
	defer span.End()

	artifacts, err := s.export(ctx, view, req)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "Export failed",
			slog.String("stem", req.Stem),
			infrastructure.ErrorAttr(err))
		return artifacts, err
	}
	s.logger.InfoContext(ctx, "Export complete",
		slog.String("stem", req.Stem),
		slog.Int("artifacts", len(artifacts)))
	return artifacts, nil
}

func (s *PivotService) export(ctx context.Context, view *View, req ExportRequest) ([]Artifact, error) {
	if view == nil {
		return nil, apperrors.NewInvalidInputError("export needs a built view")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var wantPDF bool
	var tabular []exporter.Format
	for _, f := range req.Formats {
		if f == exporter.FormatPDF {
			wantPDF = true
			continue
		}
		tabular = append(tabular, f)
	}
	if wantPDF && req.Surface == nil {
		return nil, apperrors.NewInvalidInputError("pdf export needs a rendered surface")
	}
	if err := s.files.ValidateOutputDirectory(s.exporter.Dir()); err != nil {
		return nil, err
	}

	rows := view.ExportRows()
	columns := req.Columns
	if columns == nil {
		columns = view.Columns()
	}
	var (
		mu        sync.Mutex
		artifacts []Artifact
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range tabular {
		g.Go(func() error {
			var path string
			var err error
			switch f {
			case exporter.FormatCSV:
				path, err = s.exporter.ExportCSV(gctx, rows, req.Stem, columns)
			case exporter.FormatXLSX:
				path, err = s.exporter.ExportSpreadsheet(gctx, rows, req.Stem, columns)
			}
			s.metrics.RecordExport(ctx, string(f), err)
			if err != nil {
				return err
			}
			mu.Lock()
			artifacts = append(artifacts, Artifact{Format: f, Path: path})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return orderArtifacts(artifacts, req.Formats), err
	}

	if wantPDF {
		path, err := s.exportPDF(ctx, rows, req)
		s.metrics.RecordExport(ctx, string(exporter.FormatPDF), err)
		if err != nil {
			return orderArtifacts(artifacts, req.Formats), err
		}
		artifacts = append(artifacts, Artifact{Format: exporter.FormatPDF, Path: path})
	}

	return orderArtifacts(artifacts, req.Formats), nil
}

func (s *PivotService) exportPDF(ctx context.Context, rows pivot.ExportRows, req ExportRequest) (string, error) {
	if len(rows.Details()) == 0 {
		return "", apperrors.NewEmptyExportError(string(exporter.FormatPDF))
	}
	return s.exporter.ExportPDF(ctx, req.Surface, req.Stem)
}

func schemaColumns(schema *pivot.Schema) []string {
	if schema == nil {
		return nil
	}
	return schema.Fields()
}

// orderArtifacts sorts artifacts into the order formats were requested.
func orderArtifacts(artifacts []Artifact, formats []exporter.Format) []Artifact {
	out := make([]Artifact, 0, len(artifacts))
	for _, f := range formats {
		for _, a := range artifacts {
			if a.Format == f {
				out = append(out, a)
			}
		}
	}
	return out
}
