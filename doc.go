// Package TableDB provides a file-backed JSON table store.
//
// Every table is one JSON document holding its ordered columns and its
// rows. Each operation checks the caller's credentials, loads the whole
// document, transforms it in memory, and writes it back in full.
//
// # Quick Start
//
// Open a database over a directory:
//
//	engine, _ := TableDB.OpenDirectory("mydb", "/var/lib/tabledb", "admin", "secret")
//	creds := core.Credentials{Username: "admin", Password: "secret"}
//
//	engine.CreateTable(creds, "users", []string{"name", "age"})
//	engine.Insert(creds, "users", core.Row{"name": "Alice", "age": 30})
//
//	result, _ := engine.Select(creds, "users", core.Gt("age", 25))
//	result.Render(os.Stdout, db.FormatTable)
//
// Or choose the backend and authenticator explicitly:
//
//	backend, _ := ps.NewGitBackend("/var/lib/tabledb", core.Identity{Name: "App", Email: "app@example.com"})
//	instance := TableDB.Open("mydb", ps.NewStore(backend), auth.Static{Username: "admin", Password: "secret"})
//	engine := instance.Engine()
//
// # Document Format
//
//	{"columns":{"name":null,"age":null},"rows":[{"name":"Alice","age":30}]}
//
// # Supported Operations
//   - CreateTable, Insert, Select, Update, Delete
//   - Tables, Describe
//   - History, Restore (Git backend)
package TableDB
