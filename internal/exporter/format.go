package exporter

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"storepivot/internal/pivot"
)

// spreadsheetValue converts a record value to a cell value. Numeric types
// become numbers; strings stay text even when they look numeric, so codes
// like "000123" keep their leading zeros.
func spreadsheetValue(v any) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return x
	case decimal.Decimal:
		return x.InexactFloat64()
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		return pivot.CellString(v)
	}
}
