package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storepivot/internal/errors"
	"storepivot/internal/exporter"
	"storepivot/internal/pivot"
	"storepivot/internal/render"
)

const ordersCSV = `orderNumber,status,storeName,totalAmount
SO-1,completed,Downtown,100
SO-2,pending,Downtown,20
SO-3,completed,Mall,50
`

func writeOrders(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(ordersCSV), 0644))
	return path
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
		check   func(t *testing.T, o options)
	}{
		{
			name: "defaults",
			args: []string{"-in", "orders.csv"},
			check: func(t *testing.T, o options) {
				assert.Equal(t, "orders.csv", o.in)
				assert.Equal(t, "pivot", o.stem)
				assert.Equal(t, "none", o.schema)
				assert.False(t, o.showIDs)
			},
		},
		{
			name: "all flags",
			args: []string{"-in", "o.json", "-group", "status,storeName", "-agg", "totalAmount:sum",
				"-expand", "all", "-out", "x", "-stem", "s", "-formats", "csv", "-schema", "sales_orders",
				"-metrics", "m.prom", "-show-ids"},
			check: func(t *testing.T, o options) {
				assert.Equal(t, "status,storeName", o.group)
				assert.Equal(t, "all", o.expand)
				assert.Equal(t, "sales_orders", o.schema)
				assert.Equal(t, "m.prom", o.metrics)
				assert.True(t, o.showIDs)
			},
		},
		{name: "version needs no input", args: []string{"-version"}},
		{name: "missing input", args: nil, wantErr: apperrors.ErrInvalidInput},
		{name: "stray argument", args: []string{"-in", "a.csv", "extra"}, wantErr: apperrors.ErrInvalidInput},
		{name: "help", args: []string{"-h"}, wantErr: flag.ErrHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parseFlags(tt.args, &bytes.Buffer{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, o)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}

func TestParseAggregations(t *testing.T) {
	specs, err := parseAggregations("totalAmount:sum, orderNumber:count:orders")
	require.NoError(t, err)
	assert.Equal(t, []pivot.AggregationSpec{
		{Field: "totalAmount", Func: pivot.FuncSum},
		{Field: "orderNumber", Func: pivot.FuncCount, Alias: "orders"},
	}, specs)

	_, err = parseAggregations("totalAmount:median")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedAggregation)
	_, err = parseAggregations("totalAmount")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParseFormats(t *testing.T) {
	assert.Equal(t, []exporter.Format{exporter.FormatCSV, exporter.FormatPDF}, parseFormats("CSV, pdf"))
	assert.Empty(t, parseFormats(""))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(apperrors.NewInvalidInputError("x")))
	assert.Equal(t, 2, exitCode(apperrors.NewUnsupportedAggregationError("median")))
	assert.Equal(t, 1, exitCode(apperrors.NewStorageError("disk", nil)))
	assert.Equal(t, 1, exitCode(errors.New("x")))
}

func TestWithIDs(t *testing.T) {
	table := render.Table{
		Header: []string{"status", "total"},
		Rows:   []render.Row{{ID: "status=Completed", Level: 1, Cells: []string{"Completed", "150.00"}}},
		Footer: []string{render.GrandTotalLabel, "150.00"},
	}

	out := withIDs(table)
	assert.Equal(t, []string{"id", "status", "total"}, out.Header)
	assert.Equal(t, []string{"status=Completed", "Completed", "150.00"}, out.Rows[0].Cells)
	assert.Equal(t, 0, out.Rows[0].Level)
	assert.Equal(t, []string{"", render.GrandTotalLabel, "150.00"}, out.Footer)
	// The input is untouched
	assert.Equal(t, []string{"Completed", "150.00"}, table.Rows[0].Cells)
}

func TestRun_PrintsAndExports(t *testing.T) {
	in := writeOrders(t)
	outDir := filepath.Join(t.TempDir(), "exports")
	metricsPath := filepath.Join(t.TempDir(), "metrics", "pivot.prom")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-in", in,
		"-group", "status",
		"-agg", "totalAmount:sum,orderNumber:count:orders",
		"-expand", "all",
		"-out", outDir,
		"-stem", "orders",
		"-formats", "csv,xlsx",
		"-metrics", metricsPath,
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Completed")
	assert.Contains(t, out, "Pending")
	// leaf rows carry their own amounts
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "150.00")
	assert.Contains(t, out, render.GrandTotalLabel)
	assert.Contains(t, out, "170.00")
	assert.Contains(t, out, "wrote "+filepath.Join(outDir, "orders.csv"))
	assert.Contains(t, out, "wrote "+filepath.Join(outDir, "orders.xlsx"))

	assert.FileExists(t, filepath.Join(outDir, "orders.csv"))
	assert.FileExists(t, filepath.Join(outDir, "orders.xlsx"))

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "pivot_exports_total")

	// Logs go to stderr, never stdout
	assert.Contains(t, stderr.String(), "Pivot built")
	assert.NotContains(t, out, "Pivot built")
}

func TestRun_CollapsedWithIDs(t *testing.T) {
	in := writeOrders(t)

	var stdout bytes.Buffer
	err := run(context.Background(), []string{
		"-in", in,
		"-group", "status,storeName",
		"-agg", "totalAmount:sum",
		"-expand", "status=Completed",
		"-out", t.TempDir(),
		"-show-ids",
	}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	// header, Completed, its two stores, Pending, footer
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "id"))
	assert.True(t, strings.HasPrefix(lines[1], "status=Completed "))
	assert.True(t, strings.HasPrefix(lines[2], "status=Completed/storeName=Downtown"))
	assert.True(t, strings.HasPrefix(lines[4], "status=Pending"))
}

func TestRun_Errors(t *testing.T) {
	in := writeOrders(t)

	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "unknown function",
			args:    []string{"-in", in, "-group", "status", "-agg", "totalAmount:median"},
			wantErr: apperrors.ErrUnsupportedAggregation,
		},
		{
			name:    "unknown schema",
			args:    []string{"-in", in, "-schema", "invoices"},
			wantErr: apperrors.ErrInvalidInput,
		},
		{
			name:    "field outside schema",
			args:    []string{"-in", in, "-group", "status", "-schema", "sales_orders", "-agg", "region:count"},
			wantErr: apperrors.ErrInvalidInput,
		},
		{
			name:    "missing file",
			args:    []string{"-in", filepath.Join(t.TempDir(), "nope.csv")},
			wantErr: apperrors.ErrStorage,
		},
		{
			name:    "pdf without chrome",
			args:    []string{"-in", in, "-group", "status", "-formats", "pdf"},
			env:     map[string]string{"STOREPIVOT_RENDER_CHROME_PATH": filepath.Join(t.TempDir(), "no-chrome")},
			wantErr: apperrors.ErrRender,
		},
		{
			name:    "bad config value",
			args:    []string{"-in", in},
			env:     map[string]string{"STOREPIVOT_LOGGING_LEVEL": "loud"},
			wantErr: apperrors.ErrConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			args := append([]string{"-out", t.TempDir()}, tt.args...)
			err := run(context.Background(), args, &bytes.Buffer{}, &bytes.Buffer{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &stdout, &bytes.Buffer{}))
	assert.True(t, strings.HasPrefix(stdout.String(), "storepivot v"))
}
