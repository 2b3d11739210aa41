package pivot

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "storepivot/internal/errors"
)

// Func names an aggregation function.
type Func string

const (
	FuncSum   Func = "sum"
	FuncCount Func = "count"
	FuncAvg   Func = "avg"
	FuncMin   Func = "min"
	FuncMax   Func = "max"
)

// Valid reports whether f is one of the supported functions.
func (f Func) Valid() bool {
	switch f {
	case FuncSum, FuncCount, FuncAvg, FuncMin, FuncMax:
		return true
	}
	return false
}

// AggregationSpec pairs a field with the function computed over it.
type AggregationSpec struct {
	Field string `json:"key" validate:"required"`
	Func  Func   `json:"fn" validate:"required,oneof=sum count avg min max"`
	// Alias overrides the column name. Defaults to Field.
	Alias string `json:"alias,omitempty"`
}

// Column returns the name the aggregate value is stored under.
func (s AggregationSpec) Column() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Field
}

// ParseAggregationSpec parses "field:fn" or "field:fn:alias".
func ParseAggregationSpec(s string) (AggregationSpec, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return AggregationSpec{}, apperrors.NewInvalidInputError(
			fmt.Sprintf("aggregation %q must look like field:fn", s))
	}
	spec := AggregationSpec{Field: parts[0], Func: Func(strings.ToLower(parts[1]))}
	if len(parts) == 3 {
		spec.Alias = parts[2]
	}
	if !spec.Func.Valid() {
		return AggregationSpec{}, apperrors.NewUnsupportedAggregationError(parts[1])
	}
	return spec, nil
}

// Aggregates holds the computed value per column along with the number of
// numeric samples each value was derived from. A zero avg/min/max with zero
// samples means there was no data, not a true zero.
type Aggregates struct {
	Values  map[string]float64
	Samples map[string]int
}

// Value returns the aggregate for column, or 0 when absent.
func (a Aggregates) Value(column string) float64 {
	return a.Values[column]
}

// HasData reports whether the column saw at least one numeric value.
// count columns always have data when the record set is non-empty.
func (a Aggregates) HasData(column string) bool {
	return a.Samples[column] > 0
}

// Aggregate computes every spec over records.
//
// sum, avg, min and max only consider values that coerce to a number; the
// rest contribute nothing. count is always len(records), whatever its field.
func Aggregate(records []Record, specs []AggregationSpec) (Aggregates, error) {
	out := Aggregates{
		Values:  make(map[string]float64, len(specs)),
		Samples: make(map[string]int, len(specs)),
	}

	for _, spec := range specs {
		col := spec.Column()
		switch spec.Func {
		case FuncCount:
			out.Values[col] = float64(len(records))
			out.Samples[col] = len(records)
			continue
		case FuncSum, FuncAvg, FuncMin, FuncMax:
		default:
			return Aggregates{}, apperrors.NewUnsupportedAggregationError(string(spec.Func))
		}

		var (
			sum      float64
			n        int
			min, max float64
		)
		for _, r := range records {
			v, ok := toNumber(r[spec.Field])
			if !ok {
				continue
			}
			if n == 0 || v < min {
				min = v
			}
			if n == 0 || v > max {
				max = v
			}
			sum += v
			n++
		}

		out.Samples[col] = n
		switch spec.Func {
		case FuncSum:
			out.Values[col] = sum
		case FuncAvg:
			if n > 0 {
				out.Values[col] = sum / float64(n)
			} else {
				out.Values[col] = 0
			}
		case FuncMin:
			out.Values[col] = min
		case FuncMax:
			out.Values[col] = max
		}
	}

	return out, nil
}

// toNumber coerces a record value to float64. Strings are trimmed and parsed;
// NaN and infinities are rejected.
func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case decimal.Decimal:
		f = n.InexactFloat64()
	case *decimal.Decimal:
		if n == nil {
			return 0, false
		}
		f = n.InexactFloat64()
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
