package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"storepivot/internal/config"
	apperrors "storepivot/internal/errors"
	"storepivot/internal/exporter"
	"storepivot/internal/infrastructure"
	"storepivot/internal/pivot"
	"storepivot/internal/render"
	"storepivot/internal/services"
	"storepivot/pkg/contracts"
)

// expandAll is the -expand value that opens every group.
const expandAll = "all"

type options struct {
	in         string
	group      string
	agg        string
	expand     string
	out        string
	stem       string
	formats    string
	schema     string
	metrics    string
	configFile string
	showIDs    bool
	version    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "pivot: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for usage and input mistakes, 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, apperrors.ErrInvalidInput) || errors.Is(err, apperrors.ErrUnsupportedAggregation) {
		return 2
	}
	return 1
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("pivot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "record file to load (.csv, .json or .xlsx)")
	fs.StringVar(&o.group, "group", "", "comma-separated group keys, outermost first")
	fs.StringVar(&o.agg, "agg", "", "comma-separated aggregations as field:fn or field:fn:alias (fn: sum, count, avg, min, max)")
	fs.StringVar(&o.expand, "expand", "", "comma-separated node ids to expand, or \"all\"")
	fs.StringVar(&o.out, "out", "", "export directory (defaults to export.dir from config)")
	fs.StringVar(&o.stem, "stem", "pivot", "export file name without extension")
	fs.StringVar(&o.formats, "formats", "", "comma-separated export formats: csv, xlsx, pdf (empty skips export)")
	fs.StringVar(&o.schema, "schema", services.SchemaNone, "record schema: sales_orders | none")
	fs.StringVar(&o.metrics, "metrics", "", "write Prometheus metrics to this file on exit")
	fs.StringVar(&o.configFile, "config", "", "config file (defaults to STOREPIVOT_CONFIG or storepivot.yaml)")
	fs.BoolVar(&o.showIDs, "show-ids", false, "print node ids for use with -expand")
	fs.BoolVar(&o.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, apperrors.NewInvalidInputError(fmt.Sprintf("unexpected arguments: %s", strings.Join(fs.Args(), " ")))
	}
	if !o.version && o.in == "" {
		return o, apperrors.NewInvalidInputError("-in is required")
	}
	return o, nil
}

// splitList splits a comma-separated flag, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseAggregations(s string) ([]pivot.AggregationSpec, error) {
	var specs []pivot.AggregationSpec
	for _, part := range splitList(s) {
		spec, err := pivot.ParseAggregationSpec(part)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseFormats(s string) []exporter.Format {
	var formats []exporter.Format
	for _, part := range splitList(s) {
		formats = append(formats, exporter.Format(strings.ToLower(part)))
	}
	return formats
}

func expandedSet(view *services.View, spec string) pivot.ExpandedSet {
	if strings.TrimSpace(spec) == expandAll {
		return pivot.AllNodeIDs(view.Tree())
	}
	ids := splitList(spec)
	set := pivot.NewExpandedSet()
	for _, id := range ids {
		set.Expand(pivot.NodeID(id))
	}
	return set
}

// withIDs returns a copy of t with a leading id column.
func withIDs(t render.Table) render.Table {
	out := render.Table{
		Header: append([]string{"id"}, t.Header...),
		Rows:   make([]render.Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		r.Cells = append([]string{r.ID}, r.Cells...)
		// ids are not indented
		r.Level = 0
		out.Rows[i] = r
	}
	if len(t.Footer) > 0 {
		out.Footer = append([]string{""}, t.Footer...)
	}
	return out
}

func loadConfig(o options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.out != "" {
		cfg.Export.Dir = o.out
	}
	if o.metrics != "" {
		cfg.Telemetry.MetricsFile = o.metrics
		cfg.Telemetry.Metrics = true
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig, stderr io.Writer) (*slog.Logger, func(), error) {
	if cfg.Output == "console" {
		return infrastructure.NewLogger(stderr, cfg), func() {}, nil
	}
	logger, err := infrastructure.InitializeLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { infrastructure.CloseLogFile() }, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	paths, err := cfg.ResolvePaths("")
	if err != nil {
		return err
	}
	cfg.Export.Dir = paths.ExportDir
	if paths.LogFile != "" {
		cfg.Logging.FilePath = paths.LogFile
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	paths.LogPathResolution(logger)

	telemetry, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    infrastructure.ServiceName,
		ServiceVersion: infrastructure.ServiceVersion,
		Environment:    infrastructure.DefaultOTelConfig().Environment,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		EnableTracing:  cfg.Telemetry.Tracing,
		EnableMetrics:  cfg.Telemetry.Metrics,
		SampleRatio:    1.0,
		TraceWriter:    stderr,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if paths.MetricsFile != "" {
			if werr := telemetry.WriteMetrics(paths.MetricsFile); werr != nil {
				logger.Warn("Failed to write metrics", infrastructure.ErrorAttr(werr))
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := telemetry.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("Telemetry shutdown failed", infrastructure.ErrorAttr(serr))
		}
	}()

	svc, err := services.NewPivotService(cfg, telemetry, logger)
	if err != nil {
		return err
	}

	schema, err := services.SchemaByName(o.schema)
	if err != nil {
		return err
	}
	aggs, err := parseAggregations(o.agg)
	if err != nil {
		return err
	}

	records, err := svc.Load(ctx, o.in)
	if err != nil {
		return err
	}
	view, err := svc.Build(ctx, services.Request{
		Records:      records,
		GroupKeys:    splitList(o.group),
		Aggregations: aggs,
		Schema:       schema,
	})
	if err != nil {
		return err
	}

	expanded := expandedSet(view, o.expand)
	table := view.Table(expanded)
	if o.showIDs {
		table = withIDs(table)
	}
	if err := render.WriteText(stdout, table); err != nil {
		return err
	}

	formats := parseFormats(o.formats)
	if len(formats) == 0 {
		return nil
	}

	req := services.ExportRequest{Stem: o.stem, Formats: formats}
	for _, f := range formats {
		if f == exporter.FormatPDF {
			surface, err := svc.Surface(view)
			if err != nil {
				return err
			}
			req.Surface = surface
		}
	}

	artifacts, err := svc.Export(ctx, view, req)
	for _, a := range artifacts {
		fmt.Fprintf(stdout, "wrote %s\n", a.Path)
	}
	return err
}
