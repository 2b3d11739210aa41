package services

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storepivot/internal/config"
	"storepivot/internal/infrastructure"
	"storepivot/internal/pivot"
	"storepivot/internal/shared/testutil"
	"storepivot/pkg/contracts/domain"
)

// MockSurface is a mock for exporter.Surface
type MockSurface struct {
	mock.Mock
}

func (m *MockSurface) Capture(ctx context.Context) (image.Image, error) {
	args := m.Called(ctx)
	img, _ := args.Get(0).(image.Image)
	return img, args.Error(1)
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(y % 256), A: 255})
		}
	}
	return img
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Export.Dir = filepath.Join(t.TempDir(), "exports")
	cfg.Pivot.TimeZone = "UTC"
	return cfg
}

type testEnv struct {
	svc       *PivotService
	logs      *testutil.BufferedSlogHandler
	telemetry *infrastructure.OTelProviders
	cfg       *config.Config
}

func setupService(t *testing.T, mutate func(*config.Config)) testEnv {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	logger, logs := testutil.NewTestLogger(t)

	telemetry, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { telemetry.Shutdown(context.Background()) })

	svc, err := NewPivotService(cfg, telemetry, logger)
	require.NoError(t, err)
	return testEnv{svc: svc, logs: logs, telemetry: telemetry, cfg: cfg}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func order(number, store string, status domain.SalesOrderStatus, day int, total string) domain.SalesOrder {
	return domain.SalesOrder{
		OrderNumber:  number,
		CustomerName: "Customer " + number,
		StoreName:    store,
		Status:       status,
		OrderDate:    time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC),
		ItemCount:    1,
		Subtotal:     money(total),
		TotalAmount:  money(total),
	}
}

// testOrders: Completed 100+50+30 and Pending 20, over two stores.
func testOrders() []domain.SalesOrder {
	return []domain.SalesOrder{
		order("SO-1", "Downtown", domain.SalesOrderStatusCompleted, 5, "100"),
		order("SO-2", "Downtown", domain.SalesOrderStatusPending, 5, "20"),
		order("SO-3", "Mall", domain.SalesOrderStatusCompleted, 6, "50"),
		order("SO-4", "Mall", domain.SalesOrderStatusCompleted, 6, "30"),
	}
}

var testAggs = []pivot.AggregationSpec{
	{Field: domain.FieldTotalAmount, Func: pivot.FuncSum},
	{Field: domain.FieldOrderNumber, Func: pivot.FuncCount, Alias: "orders"},
}

func statusRequest() Request {
	return Request{
		Records:      domain.SalesOrderRecords(testOrders()),
		GroupKeys:    []string{domain.FieldStatus},
		Aggregations: testAggs,
		Schema:       domain.SalesOrderSchema(),
	}
}
