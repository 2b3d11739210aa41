package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepivot/internal/pivot"
)

func TestHTMLTable(t *testing.T) {
	keys := []string{"status", "store"}
	tree, err := pivot.BuildTree(testRecords(), keys, testAggs)
	require.NoError(t, err)
	totals, err := pivot.Totals(tree, testAggs)
	require.NoError(t, err)

	doc, err := HTMLTable(pivot.Flatten(tree, pivot.AllNodeIDs(tree)), keys, testAggs, totals)
	require.NoError(t, err)
	html := string(doc)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Equal(t, 1, strings.Count(html, `<table id="pivot-table">`))
	assert.Contains(t, html, "<th>totalAmount</th>")
	assert.Equal(t, 8, strings.Count(html, "<tr data-id="))
	assert.Equal(t, 5, strings.Count(html, `class="group"`))
	assert.Contains(t, html, `style="padding-left:8px">Completed</td>`)
	assert.Contains(t, html, `style="padding-left:40px">completed</td>`)
	assert.Contains(t, html, `<td class="num">150.00</td>`)
	assert.Contains(t, html, "<tfoot><tr><td>Grand Total</td><td></td><td class=\"num\">170.00</td>")
	assert.Contains(t, html, pivot.Placeholder)
}

func TestHTMLTable_EscapesValues(t *testing.T) {
	records := []pivot.Record{{"customerName": `<script>alert("x")</script>`, "totalAmount": 1}}
	aggs := []pivot.AggregationSpec{{Field: "totalAmount", Func: pivot.FuncSum}}
	tree, err := pivot.BuildTree(records, []string{"customerName"}, aggs)
	require.NoError(t, err)
	totals, err := pivot.Totals(tree, aggs)
	require.NoError(t, err)

	doc, err := HTMLTable(pivot.Flatten(tree, nil), []string{"customerName"}, aggs, totals)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(doc, []byte("<script>")))
	assert.True(t, bytes.Contains(doc, []byte("&lt;script&gt;")))
}

func TestHTMLTable_EmptyRows(t *testing.T) {
	doc, err := HTMLTable(nil, []string{"status"}, testAggs, pivot.Aggregates{})
	require.NoError(t, err)
	assert.Contains(t, string(doc), `<table id="pivot-table">`)
	assert.NotContains(t, string(doc), "<tr data-id=")
}
