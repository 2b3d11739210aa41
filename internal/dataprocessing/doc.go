// Package dataprocessing loads record files into pivot records.
//
// Three formats are read, chosen by file extension:
//
//	.csv   header row, then one record per line; values stay strings
//	.json  an array of objects, or {"records": [...]}; numbers stay json.Number
//	.xlsx  first sheet (or Loader.Sheet); first non-blank row is the header
//
// Empty cells become nil so they group as missing values. Numeric strings
// are coerced later by the aggregator, which keeps leading zeros intact for
// grouping and export.
//
// Usage:
//
//	records, err := dataprocessing.LoadRecords(ctx, "sales_orders.csv")
//	if err != nil {
//	    return err
//	}
//	tree, err := pivot.BuildTree(records, []string{"status"}, aggs)
package dataprocessing
