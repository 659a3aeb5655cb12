package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
)

// Backend is the byte store table documents are persisted through.
// Missing documents are reported with an error matching fs.ErrNotExist.
type Backend interface {
	// Location returns where a document with the given file name lives.
	Location(name string) string
	Read(name string) ([]byte, error)
	// Write replaces the document content in full.
	Write(name string, data []byte) error
	Exists(name string) (bool, error)
	// List returns the file names of all documents at the root.
	List() ([]string, error)
}

// Versioned is implemented by backends that keep every revision of a document.
type Versioned interface {
	Backend
	History(name string) ([]Transaction, error)
	ReadAt(name string, txnID string) ([]byte, error)
}

// FilesystemBackend stores documents as files on a billy filesystem.
type FilesystemBackend struct {
	fs     billy.Filesystem
	root   string
	atomic bool
}

// NewMemoryBackend keeps documents in memory. Used for tests and ephemeral databases.
func NewMemoryBackend() *FilesystemBackend {
	return &FilesystemBackend{
		fs: memfs.New(),
	}
}

// NewFileBackend stores documents under root, creating it if needed.
func NewFileBackend(root string) (*FilesystemBackend, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &FilesystemBackend{
		fs:     osfs.New(root),
		root:   root,
		atomic: true,
	}, nil
}

func (b *FilesystemBackend) Location(name string) string {
	if b.root == "" {
		return name
	}
	return filepath.Join(b.root, name)
}

func (b *FilesystemBackend) Read(name string) ([]byte, error) {
	data, err := util.ReadFile(b.fs, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the file content. On disk the data is written next to the
// target and renamed over it, so a reader never sees a truncated document.
func (b *FilesystemBackend) Write(name string, data []byte) error {
	if !b.atomic {
		if err := util.WriteFile(b.fs, name, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		return nil
	}

	tmp := name + ".tmp"
	if err := util.WriteFile(b.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := b.fs.Rename(tmp, name); err != nil {
		b.fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func (b *FilesystemBackend) Exists(name string) (bool, error) {
	_, err := b.fs.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", name, err)
}

func (b *FilesystemBackend) List() ([]string, error) {
	entries, err := b.fs.ReadDir("/")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}
