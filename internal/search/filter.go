package search

import (
	"encoding/json"
	"fmt"

	"github.com/robotu/molkit/internal/domain/molecule"
	"github.com/robotu/molkit/pkg/errors"
)

// conditionKind discriminates the three supported condition shapes.
type conditionKind int

const (
	kindRange conditionKind = iota
	kindAnyOf
	kindEquals
)

// Condition is a single-field predicate: an inclusive numeric range, a set of
// allowed values, or an exact-equality scalar.  Conditions are value types
// and never mutated after construction.
type Condition struct {
	kind   conditionKind
	min    float64
	max    float64
	anyOf  []interface{}
	equals interface{}
}

// Range returns a condition satisfied when min <= value <= max, both ends
// inclusive.
func Range(min, max float64) Condition {
	return Condition{kind: kindRange, min: min, max: max}
}

// AnyOf returns a condition satisfied when the field value equals any of the
// listed values.
func AnyOf(values ...interface{}) Condition {
	return Condition{kind: kindAnyOf, anyOf: values}
}

// Equals returns a condition satisfied by exact equality.
func Equals(value interface{}) Condition {
	return Condition{kind: kindEquals, equals: value}
}

// Filter maps field names to conditions.  All conditions must hold (AND
// semantics); there is no OR and no negation.  An empty or nil Filter passes
// every record.
type Filter map[string]Condition

// Passes evaluates the filter against a record's metadata.  A field referenced
// by the filter but absent from the record fails conservatively: absent data
// never passes.  Neither the record nor the filter is mutated.
func (f Filter) Passes(rec *molecule.Record) bool {
	if len(f) == 0 {
		return true
	}
	for field, cond := range f {
		val, ok := rec.Meta[field]
		if !ok || val == nil {
			return false
		}
		if !cond.matches(val) {
			return false
		}
	}
	return true
}

func (c Condition) matches(val interface{}) bool {
	switch c.kind {
	case kindRange:
		num, ok := asFloat(val)
		return ok && c.min <= num && num <= c.max
	case kindAnyOf:
		for _, allowed := range c.anyOf {
			if looseEqual(val, allowed) {
				return true
			}
		}
		return false
	default:
		return looseEqual(val, c.equals)
	}
}

// looseEqual compares two scalars, treating all numeric types as float64 so
// that JSON-decoded values (always float64) match typed Go literals.
func looseEqual(a, b interface{}) bool {
	if fa, ok := asFloat(a); ok {
		fb, okB := asFloat(b)
		return okB && fa == fb
	}
	return a == b
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ParseFilterJSON parses the external filter representation used by the CLI
// and HTTP API into a Filter.  Shapes per field:
//
//	{"min": 0, "max": 250}            inclusive numeric range
//	["soluble", "slightly soluble"]   set membership
//	"soluble" / 250 / true            exact equality
//
// Any other shape is a validation error.  An empty string or "{}" yields an
// empty filter.
func ParseFilterJSON(raw string) (Filter, error) {
	if raw == "" {
		return Filter{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFilterInvalid, "filter is not a JSON object")
	}

	out := make(Filter, len(fields))
	for name, msg := range fields {
		cond, err := parseCondition(msg)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeFilterInvalid,
				fmt.Sprintf("invalid condition for field %q", name))
		}
		out[name] = cond
	}
	return out, nil
}

type rangeShape struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

func parseCondition(msg json.RawMessage) (Condition, error) {
	trimmed := string(msg)
	if len(trimmed) == 0 {
		return Condition{}, fmt.Errorf("empty condition")
	}

	switch trimmed[0] {
	case '{':
		var r rangeShape
		if err := json.Unmarshal(msg, &r); err != nil {
			return Condition{}, err
		}
		if r.Min == nil || r.Max == nil {
			return Condition{}, fmt.Errorf("range condition requires both min and max")
		}
		if *r.Min > *r.Max {
			return Condition{}, fmt.Errorf("range min %v exceeds max %v", *r.Min, *r.Max)
		}
		return Range(*r.Min, *r.Max), nil

	case '[':
		var values []interface{}
		if err := json.Unmarshal(msg, &values); err != nil {
			return Condition{}, err
		}
		if len(values) == 0 {
			return Condition{}, fmt.Errorf("set condition must list at least one value")
		}
		return AnyOf(values...), nil

	default:
		var scalar interface{}
		if err := json.Unmarshal(msg, &scalar); err != nil {
			return Condition{}, err
		}
		if scalar == nil {
			return Condition{}, fmt.Errorf("null is not a valid condition")
		}
		return Equals(scalar), nil
	}
}
