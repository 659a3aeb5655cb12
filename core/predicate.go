package core

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
)

// Predicate chooses rows for select, update and delete.
type Predicate interface {
	Evaluate(row Row) bool
}

// PredicateFunc adapts an ordinary function to a Predicate.
type PredicateFunc func(row Row) bool

func (f PredicateFunc) Evaluate(row Row) bool {
	return f(row)
}

// All matches every row.
var All Predicate = PredicateFunc(func(Row) bool { return true })

// Matches evaluates p against row. A nil predicate matches every row.
func Matches(p Predicate, row Row) bool {
	if p == nil {
		return true
	}
	return p.Evaluate(row)
}

// Eq matches rows whose column equals value. Numbers compare by value
// regardless of their Go type.
func Eq(column string, value any) Predicate {
	return PredicateFunc(func(row Row) bool {
		return equal(row[column], value)
	})
}

// Ne matches rows whose column differs from value.
func Ne(column string, value any) Predicate {
	return Not(Eq(column, value))
}

// IsNull matches rows where column is null or missing.
func IsNull(column string) Predicate {
	return PredicateFunc(func(row Row) bool {
		return row[column] == nil
	})
}

func Gt(column string, value any) Predicate {
	return ordered(column, value, func(c int) bool { return c > 0 })
}

func Gte(column string, value any) Predicate {
	return ordered(column, value, func(c int) bool { return c >= 0 })
}

func Lt(column string, value any) Predicate {
	return ordered(column, value, func(c int) bool { return c < 0 })
}

func Lte(column string, value any) Predicate {
	return ordered(column, value, func(c int) bool { return c <= 0 })
}

func Not(p Predicate) Predicate {
	return PredicateFunc(func(row Row) bool {
		return !Matches(p, row)
	})
}

// And matches rows every predicate matches. And() matches everything.
func And(predicates ...Predicate) Predicate {
	return PredicateFunc(func(row Row) bool {
		for _, p := range predicates {
			if !Matches(p, row) {
				return false
			}
		}
		return true
	})
}

// Or matches rows any predicate matches. Or() matches nothing.
func Or(predicates ...Predicate) Predicate {
	return PredicateFunc(func(row Row) bool {
		for _, p := range predicates {
			if Matches(p, row) {
				return true
			}
		}
		return false
	})
}

// ordered compares two numbers or two strings; anything else never matches.
func ordered(column string, value any, accept func(int) bool) Predicate {
	return PredicateFunc(func(row Row) bool {
		c, ok := compare(row[column], value)
		return ok && accept(c)
	})
}

func compare(a, b any) (int, bool) {
	if x, ok := toNumber(a); ok {
		y, ok := toNumber(b)
		if !ok {
			return 0, false
		}
		return x.Cmp(y), true
	}

	x, ok := a.(string)
	if !ok {
		return 0, false
	}
	y, ok := b.(string)
	if !ok {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	default:
		return 0, true
	}
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// numberPrec holds any int64 or uint64 exactly, so large integer IDs
// compare by their true value.
const numberPrec = 128

func toNumber(v any) (*big.Float, bool) {
	n := new(big.Float).SetPrec(numberPrec)
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return nil, false
		}
		return n.SetFloat64(x), true
	case float32:
		if math.IsNaN(float64(x)) {
			return nil, false
		}
		return n.SetFloat64(float64(x)), true
	case int:
		return n.SetInt64(int64(x)), true
	case int8:
		return n.SetInt64(int64(x)), true
	case int16:
		return n.SetInt64(int64(x)), true
	case int32:
		return n.SetInt64(int64(x)), true
	case int64:
		return n.SetInt64(x), true
	case uint:
		return n.SetUint64(uint64(x)), true
	case uint8:
		return n.SetUint64(uint64(x)), true
	case uint16:
		return n.SetUint64(uint64(x)), true
	case uint32:
		return n.SetUint64(uint64(x)), true
	case uint64:
		return n.SetUint64(x), true
	case json.Number:
		f, _, err := big.ParseFloat(string(x), 10, numberPrec, big.ToNearestEven)
		return f, err == nil
	default:
		return nil, false
	}
}
