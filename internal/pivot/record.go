package pivot

import (
	"fmt"
	"sort"

	apperrors "storepivot/internal/errors"
)

// Record is one flat input row keyed by field name.
type Record map[string]any

// Schema declares the fields a record set may carry. Field order is the
// default column order for exports.
type Schema struct {
	fields []string
	index  map[string]struct{}
}

// NewSchema builds a schema from field names. Duplicate or empty names are
// rejected.
func NewSchema(fields ...string) (*Schema, error) {
	s := &Schema{index: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		if f == "" {
			return nil, apperrors.NewInvalidInputError("schema field name is empty")
		}
		if _, dup := s.index[f]; dup {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("schema field %q declared twice", f))
		}
		s.index[f] = struct{}{}
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is NewSchema for package-level declarations.
func MustSchema(fields ...string) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the declared field names in order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Has reports whether field is declared.
func (s *Schema) Has(field string) bool {
	_, ok := s.index[field]
	return ok
}

// Check rejects the first record key not declared in the schema.
func (s *Schema) Check(i int, r Record) error {
	// Sorted so the reported field is stable.
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !s.Has(k) {
			return apperrors.NewInvalidInputError(
				fmt.Sprintf("record %d: field %q is not declared in the schema", i, k)).
				WithContext("record_index", i).
				WithContext("field", k)
		}
	}
	return nil
}

// validateInput checks the arguments of BuildTree.
func validateInput(records []Record, groupKeys []string, aggs []AggregationSpec, schema *Schema) error {
	seen := make(map[string]struct{}, len(groupKeys))
	for _, k := range groupKeys {
		if k == "" {
			return apperrors.NewInvalidInputError("group key is empty")
		}
		if _, dup := seen[k]; dup {
			return apperrors.NewInvalidInputError(fmt.Sprintf("group key %q repeated", k)).
				WithContext("group_key", k)
		}
		seen[k] = struct{}{}
		if schema != nil && !schema.Has(k) {
			return apperrors.NewInvalidInputError(fmt.Sprintf("group key %q is not declared in the schema", k)).
				WithContext("group_key", k)
		}
	}

	columns := make(map[string]struct{}, len(aggs))
	for _, a := range aggs {
		if !a.Func.Valid() {
			return apperrors.NewUnsupportedAggregationError(string(a.Func))
		}
		if a.Field == "" {
			return apperrors.NewInvalidInputError("aggregation field is empty")
		}
		if schema != nil && !schema.Has(a.Field) {
			return apperrors.NewInvalidInputError(fmt.Sprintf("aggregation field %q is not declared in the schema", a.Field)).
				WithContext("field", a.Field)
		}
		col := a.Column()
		if _, dup := columns[col]; dup {
			return apperrors.NewInvalidInputError(fmt.Sprintf("aggregation column %q produced twice", col)).
				WithContext("column", col)
		}
		columns[col] = struct{}{}
	}

	for i, r := range records {
		if r == nil {
			return apperrors.NewInvalidInputError(fmt.Sprintf("record %d is nil", i)).
				WithContext("record_index", i)
		}
		if schema != nil {
			if err := schema.Check(i, r); err != nil {
				return err
			}
		}
	}
	return nil
}
