package op

import (
	"github.com/nickyhof/TableDB/ps"
)

type DatabaseOp struct {
	Name        string
	Persistence *ps.Store
}

func GetDatabase(name string, persistence *ps.Store) *DatabaseOp {
	return &DatabaseOp{
		Name:        name,
		Persistence: persistence,
	}
}

func (op *DatabaseOp) TableNames() ([]string, error) {
	return op.Persistence.Tables()
}

func (op *DatabaseOp) Table(name string) (*TableOp, error) {
	return GetTable(name, op.Persistence)
}

func (op *DatabaseOp) CreateTable(name string, schema []string) (*TableOp, error) {
	return CreateTable(name, schema, op.Persistence)
}
