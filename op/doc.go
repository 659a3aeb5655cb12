// Package op provides the table operations TableDB's engine is composed of.
//
// The op package sits between the engine (db/) and the persistence layer
// (ps/). A TableOp holds one loaded document; its methods transform the
// document in memory and Save writes it back in full.
//
// # DatabaseOp
//
//	dbOp := op.GetDatabase("mydb", store)
//	tables, _ := dbOp.TableNames()
//
// # TableOp
//
//	tableOp, err := op.GetTable("users", store)
//
//	tableOp.Insert(core.Row{"name": "Alice", "age": 30})
//	tableOp.Update(core.Eq("name", "Alice"), core.Row{"age": 31})
//	tableOp.Delete(core.IsNull("age"))
//	rows := tableOp.Select(core.All)
//
//	err = tableOp.Save()
//
// # Architecture
//
//	Engine (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Persistence (ps/)
//	     ↓
//	Backend (billy, go-git, S3)
package op
