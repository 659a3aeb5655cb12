package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Schema is the ordered set of column names of a table.
type Schema []string

// NewSchema builds a schema from column names, keeping the first
// occurrence of any duplicate.
func NewSchema(columns ...string) Schema {
	seen := make(map[string]bool, len(columns))
	schema := make(Schema, 0, len(columns))
	for _, column := range columns {
		if seen[column] {
			continue
		}
		seen[column] = true
		schema = append(schema, column)
	}
	return schema
}

// Has reports whether column is part of the schema.
func (s Schema) Has(column string) bool {
	for _, c := range s {
		if c == column {
			return true
		}
	}
	return false
}

// MarshalJSON writes the schema as an object mapping each column to null.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, column := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":null")
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the keys of a columns object in document order.
func (s *Schema) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("columns must be an object")
	}

	columns := Schema{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected column key %v", tok)
		}

		// Placeholder values carry no meaning.
		var placeholder json.RawMessage
		if err := dec.Decode(&placeholder); err != nil {
			return err
		}
		columns = append(columns, key)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = NewSchema(columns...)
	return nil
}

// Document is the full persisted state of one table.
type Document struct {
	Columns Schema
	Rows    []Row
}

// NewDocument returns an empty document for the given schema.
func NewDocument(schema Schema) *Document {
	return &Document{
		Columns: schema,
		Rows:    []Row{},
	}
}

type documentJSON struct {
	Columns *Schema `json:"columns"`
	Rows    *[]Row  `json:"rows"`
}

// MarshalJSON writes columns in declaration order and each row's keys in
// schema order, followed by any keys outside the schema in sorted order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	columns, err := d.Columns.MarshalJSON()
	if err != nil {
		return nil, err
	}

	buf.WriteString(`{"columns":`)
	buf.Write(columns)
	buf.WriteString(`,"rows":[`)
	for i, row := range d.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeRow(&buf, row, d.Columns); err != nil {
			return nil, err
		}
	}
	buf.WriteString("]}")

	return buf.Bytes(), nil
}

func writeRow(buf *bytes.Buffer, row Row, schema Schema) error {
	keys := make([]string, 0, len(row))
	for _, column := range schema {
		if _, ok := row[column]; ok {
			keys = append(keys, column)
		}
	}

	var extra []string
	for key := range row {
		if !schema.Has(key) {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(row[key])
		if err != nil {
			return fmt.Errorf("column %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON decodes a document, requiring both columns and rows.
// Numbers decode as json.Number so they are written back unchanged.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw documentJSON
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after document")
	}

	if raw.Columns == nil {
		return errors.New("missing columns")
	}
	if raw.Rows == nil {
		return errors.New("missing rows")
	}
	for i, row := range *raw.Rows {
		if row == nil {
			return fmt.Errorf("row %d is not an object", i)
		}
	}

	d.Columns = *raw.Columns
	d.Rows = *raw.Rows
	return nil
}
