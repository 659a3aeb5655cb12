package db

import (
	"strconv"
	"testing"

	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/ps"
)

// setupBenchmarkEngine creates a table with 1000 rows on backend
func setupBenchmarkEngine(b *testing.B, backend ps.Backend) *Engine {
	engine := NewEngine("bench", ps.NewStore(backend), testAuthority)

	if _, err := engine.CreateTable(testCreds, "users", []string{"id", "name", "age", "city"}); err != nil {
		b.Fatalf("Failed to create table: %v", err)
	}

	for i := 1; i <= 1000; i++ {
		_, err := engine.Insert(testCreds, "users", core.Row{
			"id":   i,
			"name": "User" + strconv.Itoa(i),
			"age":  20 + i%50,
			"city": "City" + strconv.Itoa(i%10),
		})
		if err != nil {
			b.Fatalf("Failed to insert: %v", err)
		}
	}

	return engine
}

func benchmarkBackends(b *testing.B) map[string]func() ps.Backend {
	return map[string]func() ps.Backend{
		"Memory": func() ps.Backend { return ps.NewMemoryBackend() },
		"File": func() ps.Backend {
			backend, err := ps.NewFileBackend(b.TempDir())
			if err != nil {
				b.Fatalf("Failed to create backend: %v", err)
			}
			return backend
		},
	}
}

func BenchmarkSelect(b *testing.B) {
	predicates := []struct {
		name      string
		predicate core.Predicate
	}{
		{"All", core.All},
		{"Where", core.Gt("age", 40)},
		{"Complex", core.And(core.Gt("age", 25), core.Eq("city", "City5"))},
	}

	for name, factory := range benchmarkBackends(b) {
		engine := setupBenchmarkEngine(b, factory())
		for _, p := range predicates {
			b.Run(name+"/"+p.name, func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					if _, err := engine.Select(testCreds, "users", p.predicate); err != nil {
						b.Fatalf("Select error: %v", err)
					}
				}
			})
		}
	}
}

func BenchmarkInsert(b *testing.B) {
	for name, factory := range benchmarkBackends(b) {
		engine := setupBenchmarkEngine(b, factory())
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, err := engine.Insert(testCreds, "users", core.Row{"id": 1000 + i, "name": "New"})
				if err != nil {
					b.Fatalf("Insert error: %v", err)
				}
			}
		})
	}
}

func BenchmarkUpdate(b *testing.B) {
	for name, factory := range benchmarkBackends(b) {
		engine := setupBenchmarkEngine(b, factory())
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, err := engine.Update(testCreds, "users", core.Eq("city", "City3"), core.Row{"age": i % 80})
				if err != nil {
					b.Fatalf("Update error: %v", err)
				}
			}
		})
	}
}
