package op

import (
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/ps"
)

// TableOp is a loaded table document together with the store it came from.
// Mutations change the in-memory document only; Save persists it.
type TableOp struct {
	Name        string
	Document    *core.Document
	Persistence *ps.Store
}

// CreateTable persists an empty document for schema. Duplicate column
// names collapse to their first occurrence.
func CreateTable(name string, schema []string, persistence *ps.Store) (*TableOp, error) {
	doc := core.NewDocument(core.NewSchema(schema...))

	if err := persistence.CreateNew(name, doc); err != nil {
		return nil, err
	}

	return &TableOp{
		Name:        name,
		Document:    doc,
		Persistence: persistence,
	}, nil
}

func GetTable(name string, persistence *ps.Store) (*TableOp, error) {
	doc, err := persistence.Load(name)
	if err != nil {
		return nil, err
	}

	return &TableOp{
		Name:        name,
		Document:    doc,
		Persistence: persistence,
	}, nil
}

func (op *TableOp) Columns() core.Schema {
	return op.Document.Columns
}

// Insert appends a row holding, for every declared column in order, the
// value from row or null when row lacks it. Keys outside the schema are dropped.
func (op *TableOp) Insert(row core.Row) core.Row {
	newRow := make(core.Row, len(op.Document.Columns))
	for _, column := range op.Document.Columns {
		if value, ok := row[column]; ok {
			newRow[column] = value
		} else {
			newRow[column] = nil
		}
	}

	op.Document.Rows = append(op.Document.Rows, newRow)
	return newRow
}

// Select returns the rows matching predicate in table order.
func (op *TableOp) Select(predicate core.Predicate) []core.Row {
	results := []core.Row{}
	for _, row := range op.Document.Rows {
		if core.Matches(predicate, row) {
			results = append(results, row)
		}
	}
	return results
}

// Update sets every key of values on each matching row, adding keys the
// row does not have. Returns the number of rows matched.
func (op *TableOp) Update(predicate core.Predicate, values core.Row) int {
	updated := 0
	for _, row := range op.Document.Rows {
		if !core.Matches(predicate, row) {
			continue
		}
		for key, value := range values {
			row[key] = value
		}
		updated++
	}
	return updated
}

// Delete keeps, in order, the rows predicate does not match. Returns the
// number of rows removed.
func (op *TableOp) Delete(predicate core.Predicate) int {
	kept := make([]core.Row, 0, len(op.Document.Rows))
	for _, row := range op.Document.Rows {
		if !core.Matches(predicate, row) {
			kept = append(kept, row)
		}
	}

	deleted := len(op.Document.Rows) - len(kept)
	op.Document.Rows = kept
	return deleted
}

// Save persists the whole document.
func (op *TableOp) Save() error {
	return op.Persistence.Persist(op.Name, op.Document)
}

// Replace swaps in doc as the table's content and persists it.
func (op *TableOp) Replace(doc *core.Document) error {
	op.Document = doc
	return op.Save()
}
