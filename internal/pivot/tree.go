package pivot

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// NodeID identifies a node by its path from the root. The same logical group
// gets the same id on every rebuild over the same input.
type NodeID string

// Node is either a group node or a leaf wrapping one input record.
type Node struct {
	ID    NodeID
	Level int
	// Key and Value are set on group nodes only.
	Key   string
	Value string
	// Count is the number of leaf records under this node; 1 for a leaf.
	Count      int
	Aggregates Aggregates
	// Children holds sub-groups, or leaves at the last grouping level.
	Children []*Node
	// Record is set on leaves only.
	Record Record
}

// IsLeaf reports whether n wraps an input record.
func (n *Node) IsLeaf() bool {
	return n.Record != nil
}

// Records returns every leaf record under n in tree order.
func (n *Node) Records() []Record {
	if n.IsLeaf() {
		return []Record{n.Record}
	}
	out := make([]Record, 0, n.Count)
	for _, c := range n.Children {
		out = append(out, c.Records()...)
	}
	return out
}

// Option configures BuildTree.
type Option func(*buildOptions)

type buildOptions struct {
	schema     *Schema
	dateLayout string
	loc        *time.Location
}

// WithSchema rejects records, group keys and aggregation fields that the
// schema does not declare.
func WithSchema(s *Schema) Option {
	return func(o *buildOptions) { o.schema = s }
}

// WithDateLayout sets the Go time layout used for date-named group fields.
func WithDateLayout(layout string) Option {
	return func(o *buildOptions) { o.dateLayout = layout }
}

// WithLocation sets the time zone dates are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(o *buildOptions) { o.loc = loc }
}

// BuildTree groups records by groupKeys, outermost first, computing aggs at
// every node. Siblings keep the order in which their value was first seen.
// An empty groupKeys yields an empty tree.
func BuildTree(records []Record, groupKeys []string, aggs []AggregationSpec, opts ...Option) ([]*Node, error) {
	if len(groupKeys) == 0 {
		return []*Node{}, nil
	}

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateInput(records, groupKeys, aggs, o.schema); err != nil {
		return nil, err
	}

	b := &builder{
		keys:   groupKeys,
		aggs:   aggs,
		format: newFormatter(o.dateLayout, o.loc),
	}
	return b.group(records, 0, "")
}

type builder struct {
	keys   []string
	aggs   []AggregationSpec
	format formatter
}

type partition struct {
	value   string
	records []Record
}

func (b *builder) group(records []Record, level int, parent NodeID) ([]*Node, error) {
	key := b.keys[level]

	index := make(map[string]int)
	var parts []partition
	for _, r := range records {
		v := b.format.Discriminant(key, r[key])
		i, ok := index[v]
		if !ok {
			i = len(parts)
			index[v] = i
			parts = append(parts, partition{value: v})
		}
		parts[i].records = append(parts[i].records, r)
	}

	nodes := make([]*Node, 0, len(parts))
	for _, p := range parts {
		agg, err := Aggregate(p.records, b.aggs)
		if err != nil {
			return nil, err
		}
		n := &Node{
			ID:         childID(parent, key, p.value),
			Level:      level,
			Key:        key,
			Value:      p.value,
			Count:      len(p.records),
			Aggregates: agg,
		}

		if level+1 < len(b.keys) {
			children, err := b.group(p.records, level+1, n.ID)
			if err != nil {
				return nil, err
			}
			n.Children = children
		} else {
			n.Children, err = b.leaves(p.records, level+1, n.ID)
			if err != nil {
				return nil, err
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (b *builder) leaves(records []Record, level int, parent NodeID) ([]*Node, error) {
	out := make([]*Node, 0, len(records))
	for i, r := range records {
		agg, err := Aggregate([]Record{r}, b.aggs)
		if err != nil {
			return nil, err
		}
		out = append(out, &Node{
			ID:         NodeID(string(parent) + "#" + strconv.Itoa(i)),
			Level:      level,
			Count:      1,
			Aggregates: agg,
			Record:     r,
		})
	}
	return out, nil
}

func childID(parent NodeID, key, value string) NodeID {
	seg := url.PathEscape(key) + "=" + url.PathEscape(value)
	if parent == "" {
		return NodeID(seg)
	}
	return NodeID(string(parent) + "/" + seg)
}

// Path splits a group node id back into its key=value segments.
func (id NodeID) Path() []string {
	s := string(id)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return nil
	}
	segs := strings.Split(s, "/")
	for i, seg := range segs {
		if u, err := url.PathUnescape(seg); err == nil {
			segs[i] = u
		}
	}
	return segs
}

// Totals aggregates every leaf record in the tree, for a grand-total row.
func Totals(tree []*Node, aggs []AggregationSpec) (Aggregates, error) {
	var all []Record
	for _, n := range tree {
		all = append(all, n.Records()...)
	}
	return Aggregate(all, aggs)
}
