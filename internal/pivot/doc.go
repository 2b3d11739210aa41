// Package pivot groups flat records into a nested tree and flattens it for
// display and export.
//
// The engine has three parts:
//
// BuildTree partitions records by an ordered list of group keys, outermost
// first. Sibling groups keep the order in which their value was first seen,
// and every group node carries its recursive leaf count and the aggregates of
// all its leaf records.
//
// Aggregate computes sum, count, avg, min and max over named fields.
//
// Flatten turns the tree into table rows, descending only into nodes whose id
// is in the caller's ExpandedSet. NewExportRows flattens with every node
// expanded and is the only input the exporter accepts.
//
// Example usage:
//
//	tree, err := pivot.BuildTree(records,
//		[]string{"status", "customerName"},
//		[]pivot.AggregationSpec{{Field: "totalAmount", Func: pivot.FuncSum}})
//	if err != nil {
//		return err
//	}
//
//	expanded := pivot.NewExpandedSet()
//	expanded.Toggle(tree[0].ID)
//	rows := pivot.Flatten(tree, expanded)
//
//	export := pivot.NewExportRows(tree)
//
// The engine is pure: it keeps no state between calls and performs no I/O.
package pivot
