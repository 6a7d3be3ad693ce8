package model

import (
	"fmt"
	"math"
	"regexp"
	"slices"
)

// Op is a filter operator.
type Op string

const (
	// OpEquals matches records whose field equals Value.
	OpEquals Op = "equals"

	// OpEqualsAnyOf matches records whose field equals any of Values.
	OpEqualsAnyOf Op = "equalsAnyOf"

	// OpInArray matches records whose list field contains Value.
	OpInArray Op = "inArray"

	// OpInArrayAnyOf matches records whose list field contains any of Values.
	OpInArrayAnyOf Op = "inArrayAnyOf"
)

// Filter is a single-field predicate used by findMany and findOne.
// A nil *Filter matches every record.
type Filter struct {
	Field  string `json:"field" yaml:"field"`
	Op     Op     `json:"op" yaml:"op"`
	Value  any    `json:"value,omitempty" yaml:"value,omitempty"`
	Values []any  `json:"values,omitempty" yaml:"values,omitempty"`
}

// Eq returns an OpEquals filter.
func Eq(field string, value any) *Filter {
	return &Filter{Field: field, Op: OpEquals, Value: value}
}

// EqAnyOf returns an OpEqualsAnyOf filter.
func EqAnyOf(field string, values ...any) *Filter {
	return &Filter{Field: field, Op: OpEqualsAnyOf, Values: values}
}

// Contains returns an OpInArray filter.
func Contains(field string, value any) *Filter {
	return &Filter{Field: field, Op: OpInArray, Value: value}
}

// ContainsAnyOf returns an OpInArrayAnyOf filter.
func ContainsAnyOf(field string, values ...any) *Filter {
	return &Filter{Field: field, Op: OpInArrayAnyOf, Values: values}
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

// Validate checks the operator and that Field is one of allowed.
// An empty allowed list accepts any well-formed field name.
func (f *Filter) Validate(allowed []string) error {
	if f == nil {
		return nil
	}
	if !fieldNamePattern.MatchString(f.Field) {
		return fmt.Errorf("invalid filter field %q", f.Field)
	}
	if len(allowed) > 0 && !slices.Contains(allowed, f.Field) {
		return fmt.Errorf("unknown filter field %q", f.Field)
	}
	switch f.Op {
	case OpEquals, OpInArray:
		if _, ok := Scalar(f.Value); !ok {
			return fmt.Errorf("filter %s on %q: unsupported value %v (%T)", f.Op, f.Field, f.Value, f.Value)
		}
	case OpEqualsAnyOf, OpInArrayAnyOf:
		for i, v := range f.Values {
			if _, ok := Scalar(v); !ok {
				return fmt.Errorf("filter %s on %q: values[%d]: unsupported value %v (%T)", f.Op, f.Field, i, v, v)
			}
		}
	default:
		return fmt.Errorf("unknown filter operator %q", f.Op)
	}
	return nil
}

// Match reports whether r satisfies the filter. Unknown fields never match.
func (f *Filter) Match(r Fielder) bool {
	if f == nil {
		return true
	}
	got, ok := r.Field(f.Field)
	if !ok {
		return false
	}
	switch f.Op {
	case OpEquals:
		return scalarEqual(got, f.Value)
	case OpEqualsAnyOf:
		for _, want := range f.Values {
			if scalarEqual(got, want) {
				return true
			}
		}
	case OpInArray:
		return listContains(got, f.Value)
	case OpInArrayAnyOf:
		for _, want := range f.Values {
			if listContains(got, want) {
				return true
			}
		}
	}
	return false
}

// Scalar normalizes a filter value to string, int64 or bool.
// Integral floats (from JSON decoding) are accepted as int64.
func Scalar(v any) (any, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return val, true
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val), true
		}
	}
	return nil, false
}

func scalarEqual(got, want any) bool {
	g, ok := Scalar(got)
	if !ok {
		return false
	}
	w, ok := Scalar(want)
	if !ok {
		return false
	}
	return g == w
}

func listContains(list, want any) bool {
	switch l := list.(type) {
	case []string:
		for _, elem := range l {
			if scalarEqual(elem, want) {
				return true
			}
		}
	case []any:
		for _, elem := range l {
			if scalarEqual(elem, want) {
				return true
			}
		}
	}
	return false
}
