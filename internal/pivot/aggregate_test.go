package pivot

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storepivot/internal/errors"
)

func TestAggregate(t *testing.T) {
	records := []Record{
		{"totalAmount": 100, "itemCount": "3"},
		{"totalAmount": 50.5, "itemCount": "n/a"},
		{"itemCount": json.Number("7")},
		{"totalAmount": decimal.RequireFromString("19.5"), "itemCount": nil},
	}

	tests := []struct {
		name        string
		spec        AggregationSpec
		want        float64
		wantSamples int
	}{
		{name: "sum skips missing", spec: AggregationSpec{Field: "totalAmount", Func: FuncSum}, want: 170, wantSamples: 3},
		{name: "avg over numeric only", spec: AggregationSpec{Field: "totalAmount", Func: FuncAvg}, want: 170.0 / 3, wantSamples: 3},
		{name: "min", spec: AggregationSpec{Field: "totalAmount", Func: FuncMin}, want: 19.5, wantSamples: 3},
		{name: "max", spec: AggregationSpec{Field: "totalAmount", Func: FuncMax}, want: 100, wantSamples: 3},
		{name: "numeric strings count", spec: AggregationSpec{Field: "itemCount", Func: FuncSum}, want: 10, wantSamples: 2},
		{name: "count ignores field", spec: AggregationSpec{Field: "doesNotExist", Func: FuncCount}, want: 4, wantSamples: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(records, []AggregationSpec{tt.spec})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.Value(tt.spec.Column()), 1e-9)
			assert.Equal(t, tt.wantSamples, got.Samples[tt.spec.Column()])
		})
	}
}

func TestAggregate_NoNumericValues(t *testing.T) {
	records := []Record{{"note": "x"}, {"totalAmount": "abc"}, {"totalAmount": true}}

	for _, fn := range []Func{FuncSum, FuncAvg, FuncMin, FuncMax} {
		t.Run(string(fn), func(t *testing.T) {
			got, err := Aggregate(records, []AggregationSpec{{Field: "totalAmount", Func: fn}})
			require.NoError(t, err)
			assert.Equal(t, 0.0, got.Value("totalAmount"))
			assert.False(t, got.HasData("totalAmount"))
			assert.False(t, math.IsNaN(got.Value("totalAmount")))
		})
	}
}

func TestAggregate_EmptyRecordSet(t *testing.T) {
	got, err := Aggregate(nil, []AggregationSpec{
		{Field: "totalAmount", Func: FuncAvg},
		{Field: "id", Func: FuncCount, Alias: "orders"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Value("totalAmount"))
	assert.Equal(t, 0.0, got.Value("orders"))
	assert.False(t, got.HasData("orders"))
}

func TestAggregate_CountEqualsSetLength(t *testing.T) {
	records := []Record{{"a": 1}, {"b": "x"}, {}, {"a": nil}}
	for _, field := range []string{"a", "b", "missing", ""} {
		got, err := Aggregate(records, []AggregationSpec{{Field: field, Func: FuncCount, Alias: "n"}})
		require.NoError(t, err)
		assert.Equal(t, float64(len(records)), got.Value("n"), "field %q", field)
	}
}

func TestAggregate_RejectsNaNAndInf(t *testing.T) {
	records := []Record{{"v": math.NaN()}, {"v": math.Inf(1)}, {"v": "NaN"}, {"v": 2}}
	got, err := Aggregate(records, []AggregationSpec{{Field: "v", Func: FuncMax}})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Value("v"))
	assert.Equal(t, 1, got.Samples["v"])
}

func TestAggregate_UnsupportedFunction(t *testing.T) {
	_, err := Aggregate([]Record{{"v": 1}}, []AggregationSpec{{Field: "v", Func: "median"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedAggregation))
}

func TestParseAggregationSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    AggregationSpec
		wantErr error
	}{
		{in: "totalAmount:sum", want: AggregationSpec{Field: "totalAmount", Func: FuncSum}},
		{in: " totalAmount:AVG ", want: AggregationSpec{Field: "totalAmount", Func: FuncAvg}},
		{in: "id:count:orders", want: AggregationSpec{Field: "id", Func: FuncCount, Alias: "orders"}},
		{in: "totalAmount", wantErr: apperrors.ErrInvalidInput},
		{in: ":sum", wantErr: apperrors.ErrInvalidInput},
		{in: "totalAmount:median", wantErr: apperrors.ErrUnsupportedAggregation},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAggregationSpec(tt.in)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
