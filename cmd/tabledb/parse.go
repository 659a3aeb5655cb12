package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nickyhof/TableDB/core"
)

// parseValue decodes raw as JSON, falling back to the literal string.
func parseValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return value
}

// parseAssignment splits col=value at the first '='.
func parseAssignment(s string) (string, any, error) {
	column, raw, ok := strings.Cut(s, "=")
	column = strings.TrimSpace(column)
	if !ok || column == "" {
		return "", nil, fmt.Errorf("invalid assignment %q (want column=value)", s)
	}
	return column, parseValue(raw), nil
}

func parseAssignments(items []string) (core.Row, error) {
	row := core.Row{}
	for _, item := range items {
		column, value, err := parseAssignment(item)
		if err != nil {
			return nil, err
		}
		row[column] = value
	}
	return row, nil
}

var comparisons = []struct {
	op    string
	build func(column string, value any) core.Predicate
}{
	{"!=", func(c string, v any) core.Predicate {
		if v == nil {
			return core.Not(core.IsNull(c))
		}
		return core.Ne(c, v)
	}},
	{">=", core.Gte},
	{"<=", core.Lte},
	{"=", func(c string, v any) core.Predicate {
		if v == nil {
			return core.IsNull(c)
		}
		return core.Eq(c, v)
	}},
	{">", core.Gt},
	{"<", core.Lt},
}

// parseCondition reads col=v, col!=v, col>v, col>=v, col<v or col<=v.
// The value null tests for a missing or null column.
func parseCondition(s string) (core.Predicate, error) {
	idx := strings.IndexAny(s, "!=<>")
	if idx <= 0 {
		return nil, fmt.Errorf("invalid condition %q", s)
	}
	column := strings.TrimSpace(s[:idx])
	rest := s[idx:]

	for _, cmp := range comparisons {
		if raw, ok := strings.CutPrefix(rest, cmp.op); ok {
			return cmp.build(column, parseValue(raw)), nil
		}
	}
	return nil, fmt.Errorf("invalid condition %q", s)
}

// parseConditions ANDs every condition; no conditions match every row.
func parseConditions(items []string) (core.Predicate, error) {
	if len(items) == 0 {
		return core.All, nil
	}

	predicates := make([]core.Predicate, 0, len(items))
	for _, item := range items {
		predicate, err := parseCondition(item)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, predicate)
	}
	if len(predicates) == 1 {
		return predicates[0], nil
	}
	return core.And(predicates...), nil
}
