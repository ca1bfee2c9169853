package docstore

import (
	"fmt"
	"regexp"
	"slices"
)

// Op is a filter predicate kind.
type Op int

const (
	// OpEq matches documents whose field equals the value.
	OpEq Op = iota
	// OpMissing matches documents whose field is absent or the empty string.
	OpMissing
)

// Filter is one predicate over a single field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq matches field == value.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

// Missing matches documents where field is absent or "".
func Missing(field string) Filter {
	return Filter{Field: field, Op: OpMissing}
}

// Match reports whether fields satisfy the filter.
func (f Filter) Match(fields Fields) bool {
	v, ok := fields[f.Field]
	switch f.Op {
	case OpEq:
		return ok && v == f.Value
	case OpMissing:
		return !ok || v == nil || v == ""
	default:
		return false
	}
}

func (f Filter) String() string {
	switch f.Op {
	case OpEq:
		return fmt.Sprintf("%s == %v", f.Field, f.Value)
	case OpMissing:
		return fmt.Sprintf("%s missing", f.Field)
	default:
		return fmt.Sprintf("%s ?", f.Field)
	}
}

// Query selects documents of one collection matching all filters.
type Query struct {
	Collection string
	Filters    []Filter
}

// From starts a query over collection.
func From(collection string) Query {
	return Query{Collection: collection}
}

// Where returns a copy of q with filters appended. q itself is not modified.
func (q Query) Where(filters ...Filter) Query {
	out := Query{Collection: q.Collection, Filters: make([]Filter, 0, len(q.Filters)+len(filters))}
	out.Filters = append(out.Filters, q.Filters...)
	out.Filters = append(out.Filters, filters...)
	return out
}

// Match reports whether fields satisfy every filter of q.
func (q Query) Match(fields Fields) bool {
	for _, f := range q.Filters {
		if !f.Match(fields) {
			return false
		}
	}
	return true
}

// Constrains reports whether q pins field to exactly value.
func (q Query) Constrains(field string, value any) bool {
	return slices.ContainsFunc(q.Filters, func(f Filter) bool {
		return f.Op == OpEq && f.Field == field && f.Value == value
	})
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks collection and field names.
func (q Query) Validate() error {
	if !fieldName.MatchString(q.Collection) {
		return fmt.Errorf("invalid collection %q", q.Collection)
	}
	for _, f := range q.Filters {
		if !fieldName.MatchString(f.Field) {
			return fmt.Errorf("invalid field %q", f.Field)
		}
	}
	return nil
}
