package pivot

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storepivot/internal/errors"
)

var sumTotal = []AggregationSpec{{Field: "totalAmount", Func: FuncSum}}

func salesRecords() []Record {
	return []Record{
		{"status": "completed", "totalAmount": 100},
		{"status": "completed", "totalAmount": 50},
		{"status": "pending", "totalAmount": 20},
	}
}

func TestBuildTree_SingleKey(t *testing.T) {
	tree, err := BuildTree(salesRecords(), []string{"status"}, sumTotal)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	assert.Equal(t, "Completed", tree[0].Value)
	assert.Equal(t, 2, tree[0].Count)
	assert.Equal(t, 150.0, tree[0].Aggregates.Value("totalAmount"))
	assert.Equal(t, NodeID("status=Completed"), tree[0].ID)

	assert.Equal(t, "Pending", tree[1].Value)
	assert.Equal(t, 1, tree[1].Count)
	assert.Equal(t, 20.0, tree[1].Aggregates.Value("totalAmount"))

	for _, n := range tree {
		assert.Equal(t, 0, n.Level)
		assert.Equal(t, "status", n.Key)
		for _, leaf := range n.Children {
			assert.True(t, leaf.IsLeaf())
			assert.Equal(t, 1, leaf.Level)
		}
	}
}

func TestBuildTree_EmptyGroupKeys(t *testing.T) {
	tree, err := BuildTree(salesRecords(), nil, sumTotal)
	require.NoError(t, err)
	assert.NotNil(t, tree)
	assert.Empty(t, tree)

	tree, err = BuildTree(salesRecords(), []string{}, sumTotal)
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestBuildTree_MissingNumericField(t *testing.T) {
	records := []Record{
		{"status": "completed", "totalAmount": 100},
		{"status": "completed"},
		{"status": "completed", "totalAmount": 50},
	}
	tree, err := BuildTree(records, []string{"status"}, []AggregationSpec{
		{Field: "totalAmount", Func: FuncSum},
		{Field: "totalAmount", Func: FuncAvg, Alias: "avgAmount"},
	})
	require.NoError(t, err)
	require.Len(t, tree, 1)

	assert.Equal(t, 3, tree[0].Count)
	assert.Equal(t, 150.0, tree[0].Aggregates.Value("totalAmount"))
	assert.Equal(t, 75.0, tree[0].Aggregates.Value("avgAmount"))
}

func TestBuildTree_TwoLevels(t *testing.T) {
	records := []Record{
		{"status": "completed", "customerName": "Acme", "totalAmount": 10},
		{"status": "completed", "customerName": "Bolt", "totalAmount": 20},
		{"status": "completed", "customerName": "Acme", "totalAmount": 30},
	}
	tree, err := BuildTree(records, []string{"status", "customerName"}, sumTotal)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	status := tree[0]
	require.Len(t, status.Children, 2)
	acme, bolt := status.Children[0], status.Children[1]

	assert.Equal(t, "Acme", acme.Value)
	assert.Equal(t, "Bolt", bolt.Value)
	assert.Equal(t, 1, acme.Level)
	assert.Equal(t, "customerName", acme.Key)
	assert.Equal(t, status.Count, acme.Count+bolt.Count)
	assert.Equal(t, 40.0, acme.Aggregates.Value("totalAmount"))
	assert.Equal(t, NodeID("status=Completed/customerName=Acme"), acme.ID)

	require.Len(t, acme.Children, 2)
	assert.Equal(t, NodeID("status=Completed/customerName=Acme#0"), acme.Children[0].ID)
	assert.Equal(t, NodeID("status=Completed/customerName=Acme#1"), acme.Children[1].ID)
	assert.Equal(t, 2, acme.Children[0].Level)
	assert.Equal(t, 30.0, acme.Children[1].Aggregates.Value("totalAmount"))
}

func TestBuildTree_AbsentGroupFieldIsEmptyGroup(t *testing.T) {
	records := []Record{{"totalAmount": 5}, {"customerName": "Acme", "totalAmount": 1}, {"customerName": nil}}
	tree, err := BuildTree(records, []string{"customerName"}, sumTotal)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, EmptyValue, tree[0].Value)
	assert.Equal(t, 2, tree[0].Count)
	assert.Equal(t, "Acme", tree[1].Value)
}

func TestBuildTree_FirstSeenOrder(t *testing.T) {
	records := []Record{
		{"store": "Zeta"}, {"store": "Alpha"}, {"store": "Mid"}, {"store": "Alpha"}, {"store": "Zeta"},
	}
	var first []string
	for run := 0; run < 5; run++ {
		tree, err := BuildTree(records, []string{"store"}, nil)
		require.NoError(t, err)
		var got []string
		for _, n := range tree {
			got = append(got, n.Value)
		}
		assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, got)
		if first == nil {
			first = got
		}
		assert.Equal(t, first, got)
	}
}

func TestBuildTree_StableIDsAcrossRebuilds(t *testing.T) {
	a, err := BuildTree(salesRecords(), []string{"status"}, sumTotal)
	require.NoError(t, err)
	b, err := BuildTree(salesRecords(), []string{"status"}, sumTotal)
	require.NoError(t, err)
	assert.Equal(t, AllNodeIDs(a), AllNodeIDs(b))
}

func TestBuildTree_IDsEscapeSeparators(t *testing.T) {
	records := []Record{{"customerName": "A/B#1"}, {"customerName": "A"}}
	tree, err := BuildTree(records, []string{"customerName"}, nil)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.NotEqual(t, tree[0].ID, tree[1].ID)
	assert.Equal(t, []string{"customerName=A/B#1"}, tree[0].ID.Path())
	assert.Equal(t, []string{"customerName=A/B#1"}, tree[0].Children[0].ID.Path())
}

// Every record lands in exactly one group, once.
func TestBuildTree_PartitionCoversInput(t *testing.T) {
	records := generatedRecords(200)
	tree, err := BuildTree(records, []string{"storeName"}, nil)
	require.NoError(t, err)

	seen := make(map[int]int)
	total := 0
	for _, n := range tree {
		for _, r := range n.Records() {
			seen[r["id"].(int)]++
			total++
		}
	}
	assert.Equal(t, len(records), total)
	for i := range records {
		assert.Equal(t, 1, seen[i], "record %d", i)
	}
}

func TestBuildTree_CountAndSumInvariants(t *testing.T) {
	records := generatedRecords(150)
	aggs := []AggregationSpec{
		{Field: "totalAmount", Func: FuncSum},
		{Field: "id", Func: FuncCount, Alias: "orders"},
	}
	tree, err := BuildTree(records, []string{"storeName", "status", "salesperson"}, aggs)
	require.NoError(t, err)

	var check func(n *Node, depth int)
	check = func(n *Node, depth int) {
		if n.IsLeaf() {
			assert.Equal(t, 3, depth, "leaf %s at wrong depth", n.ID)
			return
		}
		assert.Equal(t, len(n.Records()), n.Count, "count of %s", n.ID)
		assert.Equal(t, float64(n.Count), n.Aggregates.Value("orders"))

		childSum, childCount := 0.0, 0
		for _, c := range n.Children {
			childSum += c.Aggregates.Value("totalAmount")
			childCount += c.Count
			check(c, depth+1)
		}
		assert.InDelta(t, n.Aggregates.Value("totalAmount"), childSum, 1e-6, "sum of %s", n.ID)
		assert.Equal(t, n.Count, childCount)
	}
	for _, n := range tree {
		check(n, 0)
	}
}

func TestBuildTree_InvalidInput(t *testing.T) {
	schema := MustSchema("status", "totalAmount")

	tests := []struct {
		name    string
		records []Record
		keys    []string
		aggs    []AggregationSpec
		opts    []Option
		wantErr error
	}{
		{name: "nil record", records: []Record{{"status": "a"}, nil}, keys: []string{"status"}, wantErr: apperrors.ErrInvalidInput},
		{name: "repeated key", records: salesRecords(), keys: []string{"status", "status"}, wantErr: apperrors.ErrInvalidInput},
		{name: "empty key", records: salesRecords(), keys: []string{""}, wantErr: apperrors.ErrInvalidInput},
		{name: "unknown function", records: salesRecords(), keys: []string{"status"}, aggs: []AggregationSpec{{Field: "totalAmount", Func: "median"}}, wantErr: apperrors.ErrUnsupportedAggregation},
		{name: "duplicate column", records: salesRecords(), keys: []string{"status"}, aggs: []AggregationSpec{{Field: "totalAmount", Func: FuncSum}, {Field: "totalAmount", Func: FuncMax}}, wantErr: apperrors.ErrInvalidInput},
		{name: "undeclared record field", records: []Record{{"status": "a", "note": "x"}}, keys: []string{"status"}, opts: []Option{WithSchema(schema)}, wantErr: apperrors.ErrInvalidInput},
		{name: "undeclared group key", records: salesRecords(), keys: []string{"customerName"}, opts: []Option{WithSchema(schema)}, wantErr: apperrors.ErrInvalidInput},
		{name: "undeclared agg field", records: salesRecords(), keys: []string{"status"}, aggs: []AggregationSpec{{Field: "tax", Func: FuncSum}}, opts: []Option{WithSchema(schema)}, wantErr: apperrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := BuildTree(tt.records, tt.keys, tt.aggs, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, tree)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestBuildTree_SchemaAcceptsDeclaredFields(t *testing.T) {
	schema := MustSchema("status", "totalAmount")
	tree, err := BuildTree(salesRecords(), []string{"status"}, sumTotal, WithSchema(schema))
	require.NoError(t, err)
	assert.Len(t, tree, 2)
}

func TestTotals(t *testing.T) {
	tree, err := BuildTree(salesRecords(), []string{"status"}, sumTotal)
	require.NoError(t, err)
	totals, err := Totals(tree, sumTotal)
	require.NoError(t, err)
	assert.Equal(t, 170.0, totals.Value("totalAmount"))
}

func TestNewSchema_Rejects(t *testing.T) {
	_, err := NewSchema("a", "a")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	_, err = NewSchema("a", "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func generatedRecords(n int) []Record {
	stores := []string{"Downtown", "Airport", "Mall"}
	statuses := []string{"completed", "pending", "cancelled", "refunded"}
	people := []string{"Sara", "Omar", "Lina", "Yusuf", "Noor"}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		r := Record{
			"id":          i,
			"storeName":   stores[(i*7)%len(stores)],
			"status":      statuses[(i*3)%len(statuses)],
			"salesperson": people[(i*11)%len(people)],
		}
		if i%9 != 0 {
			r["totalAmount"] = fmt.Sprintf("%d.%02d", (i*37)%500, i%100)
		}
		out[i] = r
	}
	return out
}
