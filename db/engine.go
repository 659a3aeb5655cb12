package db

import (
	"sort"
	"time"

	"github.com/nickyhof/TableDB/auth"
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/op"
	"github.com/nickyhof/TableDB/ps"
)

// Engine runs authenticated table operations against a Store. Every
// operation checks credentials before touching storage, and every mutation
// rewrites the table's whole document once at the end.
type Engine struct {
	Name          string
	persistence   *ps.Store
	authenticator auth.Authenticator
}

func NewEngine(name string, persistence *ps.Store, authenticator auth.Authenticator) *Engine {
	return &Engine{
		Name:          name,
		persistence:   persistence,
		authenticator: authenticator,
	}
}

func (engine *Engine) Store() *ps.Store {
	return engine.persistence
}

func (engine *Engine) authenticate(credentials core.Credentials) error {
	if engine.authenticator == nil || !engine.authenticator.Check(credentials.Username, credentials.Password) {
		return core.ErrAuthenticationFailed
	}
	return nil
}

func elapsed(startTime time.Time) float64 {
	return time.Since(startTime).Seconds()
}

// CreateTable persists an empty table with the given columns. Duplicate
// columns collapse to their first occurrence.
func (engine *Engine) CreateTable(credentials core.Credentials, table string, schema []string) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.authenticate(credentials); err != nil {
		return CommitResult{}, err
	}

	unlock := engine.persistence.Lock(table)
	defer unlock()

	if _, err := op.CreateTable(table, schema, engine.persistence); err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		TablesCreated:    1,
		ExecutionTimeSec: elapsed(startTime),
	}, nil
}

// Insert appends row reconciled against the table's columns: missing
// columns become null and keys outside the schema are dropped.
func (engine *Engine) Insert(credentials core.Credentials, table string, row core.Row) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.authenticate(credentials); err != nil {
		return CommitResult{}, err
	}

	unlock := engine.persistence.Lock(table)
	defer unlock()

	tableOp, err := op.GetTable(table, engine.persistence)
	if err != nil {
		return CommitResult{}, err
	}

	tableOp.Insert(row)

	if err := tableOp.Save(); err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		RecordsWritten:   1,
		ExecutionTimeSec: elapsed(startTime),
	}, nil
}

// Select returns the rows matching predicate in table order. A nil
// predicate matches every row.
func (engine *Engine) Select(credentials core.Credentials, table string, predicate core.Predicate) (QueryResult, error) {
	startTime := time.Now()

	if err := engine.authenticate(credentials); err != nil {
		return QueryResult{}, err
	}

	unlock := engine.persistence.Lock(table)
	defer unlock()

	tableOp, err := op.GetTable(table, engine.persistence)
	if err != nil {
		return QueryResult{}, err
	}

	rows := tableOp.Select(predicate)

	return QueryResult{
		Columns:          resultColumns(tableOp.Columns(), rows),
		Rows:             rows,
		RecordsRead:      len(rows),
		ExecutionTimeSec: elapsed(startTime),
	}, nil
}

// resultColumns lists the schema followed by any keys updates added, sorted.
func resultColumns(schema core.Schema, rows []core.Row) []string {
	columns := append([]string{}, schema...)

	var extra []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for key := range row {
			if schema.Has(key) || seen[key] {
				continue
			}
			seen[key] = true
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)

	return append(columns, extra...)
}

// Update sets every key of values on the rows matching predicate. Keys
// outside the schema are added. The document is persisted even when no
// row matched.
func (engine *Engine) Update(credentials core.Credentials, table string, predicate core.Predicate, values core.Row) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.authenticate(credentials); err != nil {
		return CommitResult{}, err
	}

	unlock := engine.persistence.Lock(table)
	defer unlock()

	tableOp, err := op.GetTable(table, engine.persistence)
	if err != nil {
		return CommitResult{}, err
	}

	updated := tableOp.Update(predicate, values)

	if err := tableOp.Save(); err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		RecordsUpdated:   updated,
		ExecutionTimeSec: elapsed(startTime),
	}, nil
}

// Delete removes the rows matching predicate, keeping the order of the rest.
func (engine *Engine) Delete(credentials core.Credentials, table string, predicate core.Predicate) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.authenticate(credentials); err != nil {
		return CommitResult{}, err
	}

	unlock := engine.persistence.Lock(table)
	defer unlock()

	tableOp, err := op.GetTable(table, engine.persistence)
	if err != nil {
		return CommitResult{}, err
	}

	deleted := tableOp.Delete(predicate)

	if err := tableOp.Save(); err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		RecordsDeleted:   deleted,
		ExecutionTimeSec: elapsed(startTime),
	}, nil
}

func (engine *Engine) Tables(credentials core.Credentials) ([]string, error) {
	if err := engine.authenticate(credentials); err != nil {
		return nil, err
	}

	return op.GetDatabase(engine.Name, engine.persistence).TableNames()
}

func (engine *Engine) Describe(credentials core.Credentials, table string) (core.Schema, error) {
	if err := engine.authenticate(credentials); err != nil {
		return nil, err
	}

	unlock := engine.persistence.Lock(table)
	defer unlock()

	tableOp, err := op.GetTable(table, engine.persistence)
	if err != nil {
		return nil, err
	}
	return tableOp.Columns(), nil
}

// History lists the revisions of table, newest first. It fails with
// ErrNotVersioned unless the store's backend keeps revisions.
func (engine *Engine) History(credentials core.Credentials, table string) ([]ps.Transaction, error) {
	if err := engine.authenticate(credentials); err != nil {
		return nil, err
	}

	unlock := engine.persistence.Lock(table)
	defer unlock()

	exists, err := engine.persistence.Exists(table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, core.NewTableError(table, core.ErrTableNotFound)
	}

	return engine.persistence.History(table)
}

// Restore persists the document of table as of txnID as a new revision.
func (engine *Engine) Restore(credentials core.Credentials, table string, txnID string) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.authenticate(credentials); err != nil {
		return CommitResult{}, err
	}

	unlock := engine.persistence.Lock(table)
	defer unlock()

	doc, err := engine.persistence.LoadAt(table, txnID)
	if err != nil {
		return CommitResult{}, err
	}

	tableOp := &op.TableOp{Name: table, Persistence: engine.persistence}
	if err := tableOp.Replace(doc); err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		RecordsWritten:   len(doc.Rows),
		ExecutionTimeSec: elapsed(startTime),
	}, nil
}
