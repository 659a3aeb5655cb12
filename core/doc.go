// Package core provides core types used throughout TableDB.
//
// The package defines the persisted table Document, its Schema and Rows,
// the Predicate capability used to choose rows, and the error kinds every
// layer reports.
//
// # Document Format
//
// A table is persisted as one JSON document:
//
//	{
//	    "columns": {"name": null, "age": null},
//	    "rows": [
//	        {"name": "Alice", "age": 30},
//	        {"name": "Charlie", "age": null}
//	    ]
//	}
//
// The keys of "columns" are the schema, in declaration order. The values
// are placeholders and are always null.
//
// # Predicates
//
// Any closure can be used as a predicate:
//
//	older := core.PredicateFunc(func(row core.Row) bool {
//	    age, ok := row["age"].(json.Number)
//	    if !ok {
//	        return false
//	    }
//	    n, err := age.Int64()
//	    return err == nil && n > 35
//	})
//
// Common comparisons have constructors:
//
//	core.And(core.Eq("name", "Bob"), core.Gt("age", 35))
//
// # Values
//
// Rows hold decoded JSON values: nil, bool, json.Number, string, []any and
// map[string]any. Numbers decode as json.Number, so a document rewrite
// keeps every number exactly as it was written, including integers beyond
// float64 precision. Predicates compare numbers of any Go type by value.
package core
