package render

import (
	"strconv"

	"storepivot/internal/pivot"
)

// GrandTotalLabel heads the footer row.
const GrandTotalLabel = "Grand Total"

// Table is a display-ready pivot table. Every row has one cell per group key
// followed by one cell per aggregation column.
type Table struct {
	Header []string
	Rows   []Row
	Footer []string
}

// Row is one body row of a Table.
type Row struct {
	ID     string
	Level  int
	Group  bool
	Parent bool
	Cells  []string
}

// NewTable lays out rows for display. Group rows carry their aggregates,
// leaves carry the aggregates of their single record, and the footer
// carries totals.
func NewTable(rows []pivot.FlatRow, groupKeys []string, aggs []pivot.AggregationSpec, totals pivot.Aggregates) Table {
	t := Table{
		Header: make([]string, 0, len(groupKeys)+len(aggs)),
		Rows:   make([]Row, 0, len(rows)),
	}
	t.Header = append(t.Header, groupKeys...)
	for _, s := range aggs {
		t.Header = append(t.Header, s.Column())
	}

	for _, r := range rows {
		cells := r.Cells(groupKeys, nil)
		for _, s := range aggs {
			cells = append(cells, FormatAggregate(r.Node.Aggregates, s))
		}
		t.Rows = append(t.Rows, Row{
			ID:     string(r.ID),
			Level:  r.Level,
			Group:  r.IsGroupRow,
			Parent: r.IsParent,
			Cells:  cells,
		})
	}

	t.Footer = make([]string, 0, len(t.Header))
	for i := range groupKeys {
		if i == 0 {
			t.Footer = append(t.Footer, GrandTotalLabel)
			continue
		}
		t.Footer = append(t.Footer, "")
	}
	for _, s := range aggs {
		t.Footer = append(t.Footer, FormatAggregate(totals, s))
	}
	return t
}

// FormatAggregate renders one aggregate cell. Counts are integers, everything
// else has two decimals. avg, min and max without any numeric sample show
// pivot.Placeholder instead of a misleading zero.
func FormatAggregate(a pivot.Aggregates, s pivot.AggregationSpec) string {
	col := s.Column()
	switch s.Func {
	case pivot.FuncCount:
		return strconv.FormatInt(int64(a.Value(col)), 10)
	case pivot.FuncAvg, pivot.FuncMin, pivot.FuncMax:
		if !a.HasData(col) {
			return pivot.Placeholder
		}
	}
	return strconv.FormatFloat(a.Value(col), 'f', 2, 64)
}
