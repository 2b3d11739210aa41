package services

import (
	"storepivot/internal/pivot"
	"storepivot/internal/render"
)

// View is a built pivot tree with its grand totals. It is immutable; the
// expanded set is passed in on every call.
type View struct {
	groupKeys []string
	aggs      []pivot.AggregationSpec
	tree      []*pivot.Node
	totals    pivot.Aggregates
	records   int
	columns   []string
}

// Tree returns the top-level nodes.
func (v *View) Tree() []*pivot.Node { return v.tree }

// GroupKeys returns the grouping fields, outermost first.
func (v *View) GroupKeys() []string { return v.groupKeys }

// Aggregations returns the aggregation specs the view was built with.
func (v *View) Aggregations() []pivot.AggregationSpec { return v.aggs }

// RecordCount returns how many records were grouped.
func (v *View) RecordCount() int { return v.records }

// Columns returns the declared schema fields, or nil when the view was
// built without a schema.
func (v *View) Columns() []string { return v.columns }

// Totals returns the grand-total aggregates over every record.
func (v *View) Totals() pivot.Aggregates { return v.totals }

// Rows flattens the tree for display under expanded.
func (v *View) Rows(expanded pivot.ExpandedSet) []pivot.FlatRow {
	return pivot.Flatten(v.tree, expanded)
}

// ExportRows returns the fully expanded rows.
func (v *View) ExportRows() pivot.ExportRows {
	return pivot.NewExportRows(v.tree)
}

// Table lays out the rows under expanded with a grand-total footer.
func (v *View) Table(expanded pivot.ExpandedSet) render.Table {
	return render.NewTable(v.Rows(expanded), v.groupKeys, v.aggs, v.totals)
}

// HTML renders the rows under expanded as a standalone document.
func (v *View) HTML(expanded pivot.ExpandedSet) ([]byte, error) {
	return render.HTMLTable(v.Rows(expanded), v.groupKeys, v.aggs, v.totals)
}

// ExportHTML renders the fully expanded rows, whatever the caller has
// collapsed. It is the document a PDF export captures.
func (v *View) ExportHTML() ([]byte, error) {
	return render.HTMLTable(v.ExportRows().Rows(), v.groupKeys, v.aggs, v.totals)
}
