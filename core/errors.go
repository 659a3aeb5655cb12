package core

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrTableAlreadyExists   = errors.New("table already exists")
	ErrTableNotFound        = errors.New("table does not exist")
	ErrCorruptDocument      = errors.New("corrupt table document")
	ErrInvalidTableName     = errors.New("invalid table name")
	ErrNotVersioned         = errors.New("backend does not keep history")
)

// TableError reports a failure scoped to a single table.
type TableError struct {
	Table string
	Err   error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("table %s: %v", e.Table, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

// NewTableError wraps err with the table it happened on.
func NewTableError(table string, err error) error {
	return &TableError{Table: table, Err: err}
}
