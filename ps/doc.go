// Package ps provides the persistence layer for TableDB.
//
// A Store maps each table to one JSON document and loads or persists that
// document as a whole. The bytes live on a Backend.
//
// # Memory Backend
//
// For testing or ephemeral databases:
//
//	store := ps.NewStore(ps.NewMemoryBackend())
//
// # File Backend
//
// One file per table under a storage root:
//
//	backend, err := ps.NewFileBackend("/path/to/data")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := ps.NewStore(backend)
//	store.Path("users") // "/path/to/data/users.json"
//
// # Git Backend
//
// Every persist becomes a commit, so earlier revisions stay readable:
//
//	backend, _ := ps.NewGitBackend("/path/to/data", core.Identity{Name: "App", Email: "app@example.com"})
//	history, _ := backend.History("users.json")
//	old, _ := backend.ReadAt("users.json", history[1].Id)
//
// # S3 Backend
//
// Documents stored as objects in a bucket:
//
//	backend, _ := ps.NewS3Backend(ctx, ps.S3Config{Bucket: "tables", Prefix: "mydb"})
//
// # Locking
//
// Store.Lock serializes read-modify-write cycles on one table inside a
// process. Nothing protects a document from other processes.
package ps
