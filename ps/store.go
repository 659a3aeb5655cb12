package ps

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/nickyhof/TableDB/core"
)

// DocumentExt is appended to a table name to form its document name.
const DocumentExt = ".json"

// Store maps table names to documents on a Backend and loads or persists
// them as whole units. Store methods do not synchronize with each other;
// callers hold Lock for the duration of a read-modify-write cycle.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type StoreOption func(*Store)

// WithLogger sets the logger document loads and persists are reported to.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Backend() Backend {
	return s.backend
}

// ValidateTableName rejects names that cannot map to a single document at the root.
func ValidateTableName(table string) error {
	if table == "" || table == "." || table == ".." || strings.ContainsAny(table, `/\`) {
		return core.NewTableError(table, core.ErrInvalidTableName)
	}
	return nil
}

func documentName(table string) string {
	return table + DocumentExt
}

// Path returns the location of the table's document. No I/O is performed.
func (s *Store) Path(table string) string {
	return s.backend.Location(documentName(table))
}

func (s *Store) Exists(table string) (bool, error) {
	if err := ValidateTableName(table); err != nil {
		return false, err
	}

	exists, err := s.backend.Exists(documentName(table))
	if err != nil {
		return false, core.NewTableError(table, err)
	}
	return exists, nil
}

// Load reads and decodes the whole document of table.
func (s *Store) Load(table string) (*core.Document, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}

	data, err := s.backend.Read(documentName(table))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.NewTableError(table, core.ErrTableNotFound)
		}
		return nil, core.NewTableError(table, err)
	}

	doc, err := DecodeDocument(table, data)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("loaded table document",
		"table", table,
		"path", s.Path(table),
		"bytes", len(data),
		"rows", len(doc.Rows))

	return doc, nil
}

// DecodeDocument parses document bytes, reporting failures as ErrCorruptDocument.
func DecodeDocument(table string, data []byte) (*core.Document, error) {
	var doc core.Document
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, core.NewTableError(table, fmt.Errorf("%w: %v", core.ErrCorruptDocument, err))
	}
	return &doc, nil
}

// Persist replaces the stored document of table in full. The document is
// encoded before anything is written, so an encoding failure leaves the
// previous content untouched.
func (s *Store) Persist(table string, doc *core.Document) error {
	if err := ValidateTableName(table); err != nil {
		return err
	}

	data, err := doc.MarshalJSON()
	if err != nil {
		return core.NewTableError(table, fmt.Errorf("failed to encode document: %w", err))
	}

	if err := s.backend.Write(documentName(table), data); err != nil {
		return core.NewTableError(table, err)
	}

	s.logger.Debug("persisted table document",
		"table", table,
		"path", s.Path(table),
		"bytes", len(data),
		"rows", len(doc.Rows))

	return nil
}

// CreateNew persists doc only if table has no document yet.
func (s *Store) CreateNew(table string, doc *core.Document) error {
	exists, err := s.Exists(table)
	if err != nil {
		return err
	}
	if exists {
		return core.NewTableError(table, core.ErrTableAlreadyExists)
	}
	return s.Persist(table, doc)
}

// Tables returns the sorted names of all persisted tables.
func (s *Store) Tables() ([]string, error) {
	names, err := s.backend.List()
	if err != nil {
		return nil, err
	}

	tables := []string{}
	for _, name := range names {
		if !strings.HasSuffix(name, DocumentExt) {
			continue
		}
		table := strings.TrimSuffix(name, DocumentExt)
		if ValidateTableName(table) != nil {
			continue
		}
		tables = append(tables, table)
	}
	sort.Strings(tables)

	return tables, nil
}

// Lock acquires the in-process mutex of table and returns its release func.
// It serializes operations within one Store only; other processes are not excluded.
func (s *Store) Lock(table string) func() {
	s.mu.Lock()
	m, ok := s.locks[table]
	if !ok {
		m = &sync.Mutex{}
		s.locks[table] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *Store) versioned(table string) (Versioned, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	versioned, ok := s.backend.(Versioned)
	if !ok {
		return nil, core.NewTableError(table, core.ErrNotVersioned)
	}
	return versioned, nil
}

// History lists the revisions of table's document, newest first.
func (s *Store) History(table string) ([]Transaction, error) {
	versioned, err := s.versioned(table)
	if err != nil {
		return nil, err
	}

	transactions, err := versioned.History(documentName(table))
	if err != nil {
		return nil, core.NewTableError(table, err)
	}
	return transactions, nil
}

// LoadAt decodes table's document as of the revision txnID.
func (s *Store) LoadAt(table string, txnID string) (*core.Document, error) {
	versioned, err := s.versioned(table)
	if err != nil {
		return nil, err
	}

	data, err := versioned.ReadAt(documentName(table), txnID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.NewTableError(table, core.ErrTableNotFound)
		}
		return nil, core.NewTableError(table, err)
	}

	doc, err := DecodeDocument(table, data)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("loaded table revision",
		"table", table,
		"transaction", txnID,
		"bytes", len(data))

	return doc, nil
}
