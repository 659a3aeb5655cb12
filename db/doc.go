// Package db provides the authenticated table engine for TableDB.
//
// Every Engine operation takes the caller's credentials first. When the
// Authenticator rejects them the operation fails with
// core.ErrAuthenticationFailed before any storage is touched.
//
// # Engine Usage
//
//	engine := db.NewEngine("mydb", store, auth.Static{Username: "admin", Password: "secret"})
//	creds := core.Credentials{Username: "admin", Password: "secret"}
//
//	engine.CreateTable(creds, "users", []string{"name", "age"})
//	engine.Insert(creds, "users", core.Row{"name": "Alice", "age": 30})
//
//	result, err := engine.Select(creds, "users", core.Gt("age", 25))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Render(os.Stdout, db.FormatTable)
//
// # Result Types
//
// There are two result types:
//   - QueryResult: Returned by Select
//   - CommitResult: Returned by CreateTable, Insert, Update, Delete, Restore
//
// Both render as a text table or as JSON.
package db
