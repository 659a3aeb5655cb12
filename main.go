package TableDB

import (
	"github.com/nickyhof/TableDB/auth"
	"github.com/nickyhof/TableDB/db"
	"github.com/nickyhof/TableDB/ps"
)

// Instance is a named database: a store and the authenticator guarding it.
type Instance struct {
	Name          string
	Store         *ps.Store
	Authenticator auth.Authenticator
}

func Open(name string, store *ps.Store, authenticator auth.Authenticator) *Instance {
	return &Instance{
		Name:          name,
		Store:         store,
		Authenticator: authenticator,
	}
}

func (instance *Instance) Engine() *db.Engine {
	return db.NewEngine(instance.Name, instance.Store, instance.Authenticator)
}

// OpenDirectory opens a database whose tables are JSON files under
// storageRoot, accepting exactly one username/password pair.
func OpenDirectory(name, storageRoot, username, password string) (*db.Engine, error) {
	backend, err := ps.NewFileBackend(storageRoot)
	if err != nil {
		return nil, err
	}

	instance := Open(name, ps.NewStore(backend), auth.Static{Username: username, Password: password})
	return instance.Engine(), nil
}
