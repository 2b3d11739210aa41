package pivot

import (
	"sort"
)

// Placeholder fills cells a row does not own.
const Placeholder = "—"

// ExpandedSet is the caller-held set of expanded node ids. The engine never
// stores it; pass it to Flatten on every call.
type ExpandedSet map[NodeID]struct{}

// NewExpandedSet returns a set holding ids.
func NewExpandedSet(ids ...NodeID) ExpandedSet {
	s := make(ExpandedSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is expanded. A nil set has nothing expanded.
func (s ExpandedSet) Has(id NodeID) bool {
	_, ok := s[id]
	return ok
}

func (s ExpandedSet) Expand(id NodeID)   { s[id] = struct{}{} }
func (s ExpandedSet) Collapse(id NodeID) { delete(s, id) }

// Toggle flips id and reports whether it is now expanded.
func (s ExpandedSet) Toggle(id NodeID) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

// FlatRow is one table row derived from a tree node.
type FlatRow struct {
	Node  *Node
	ID    NodeID
	Level int
	// GroupKey is the field a group row represents; empty on leaves.
	GroupKey   string
	IsLeaf     bool
	IsParent   bool
	IsGroupRow bool
}

// Cells renders the row for a table with one column per group key followed
// by columns. A group row shows its value only under its own group key and
// Placeholder under the others; leaf rows show their record's values.
func (r FlatRow) Cells(groupKeys, columns []string) []string {
	out := make([]string, 0, len(groupKeys)+len(columns))
	for _, k := range groupKeys {
		switch {
		case r.IsGroupRow && k == r.GroupKey:
			out = append(out, r.Node.Value)
		case r.IsLeaf:
			out = append(out, CellString(r.Node.Record[k]))
		default:
			out = append(out, Placeholder)
		}
	}
	for _, c := range columns {
		if r.IsLeaf {
			out = append(out, CellString(r.Node.Record[c]))
			continue
		}
		out = append(out, Placeholder)
	}
	return out
}

// Flatten walks tree depth-first, pre-order. Every visited group node
// produces a row; its children are visited only when its id is in expanded.
func Flatten(tree []*Node, expanded ExpandedSet) []FlatRow {
	var rows []FlatRow
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if n.IsLeaf() {
				rows = append(rows, FlatRow{
					Node:   n,
					ID:     n.ID,
					Level:  n.Level,
					IsLeaf: true,
				})
				continue
			}
			rows = append(rows, FlatRow{
				Node:       n,
				ID:         n.ID,
				Level:      n.Level,
				GroupKey:   n.Key,
				IsParent:   len(n.Children) > 0,
				IsGroupRow: true,
			})
			if expanded.Has(n.ID) {
				walk(n.Children)
			}
		}
	}
	walk(tree)
	if rows == nil {
		rows = []FlatRow{}
	}
	return rows
}

// AllNodeIDs returns every node id in the tree.
func AllNodeIDs(tree []*Node) ExpandedSet {
	s := make(ExpandedSet)
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			s[n.ID] = struct{}{}
			walk(n.Children)
		}
	}
	walk(tree)
	return s
}

// ExportRows is the fully expanded flattening of a tree. It can only be
// obtained from a tree, so exports never depend on interactive state.
type ExportRows struct {
	rows []FlatRow
}

// NewExportRows flattens tree with every node expanded.
func NewExportRows(tree []*Node) ExportRows {
	return ExportRows{rows: Flatten(tree, AllNodeIDs(tree))}
}

// Rows returns the flattened rows, group rows included.
func (e ExportRows) Rows() []FlatRow {
	return e.rows
}

// Details returns the leaf records in row order.
func (e ExportRows) Details() []Record {
	var out []Record
	for _, r := range e.rows {
		if r.IsLeaf {
			out = append(out, r.Node.Record)
		}
	}
	return out
}

// Columns returns the sorted union of field names across detail records.
func (e ExportRows) Columns() []string {
	seen := make(map[string]struct{})
	for _, r := range e.Details() {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// CellString renders a raw record value for a table or export cell.
// Missing values become the empty string.
func CellString(v any) string {
	if v == nil {
		return ""
	}
	return naturalString(v)
}
