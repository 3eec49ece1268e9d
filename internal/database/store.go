// Package database provides the storage layer for Arbor.
//
// It implements the Store interface using SQLite in WAL mode. Fetched
// node documents are cached by source so a tree can be reopened offline,
// and every fetch outcome is appended to a log for `arbor cache history`.
// The DBService struct is the primary entry point.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/Mr-Dark-debug/arbor/pkg/timeutil"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNotFound is returned when a document is not cached.
var ErrNotFound = errors.New("document not cached")

// Store defines the interface for document persistence.
type Store interface {
	// PutDocument inserts or replaces a cached document.
	PutDocument(doc *Document) error
	// GetDocument returns the cached document for source, or ErrNotFound.
	GetDocument(source string) (*Document, error)
	// ListDocuments returns cached documents, most recently fetched first.
	ListDocuments(limit int) ([]*Document, error)
	// DeleteDocument drops one cached document.
	DeleteDocument(source string) error
	// PurgeDocuments drops every cached document and returns how many went.
	PurgeDocuments() (int64, error)

	// RecordFetch appends a fetch outcome to the log.
	RecordFetch(ev *FetchEvent) error
	// FetchHistory returns logged fetches, newest first. An empty source
	// returns the history of every source.
	FetchHistory(source string, limit int) ([]*FetchEvent, error)
	// GetCacheStats returns aggregate numbers over the cache and the log.
	GetCacheStats() (*CacheStats, error)

	// Close gracefully shuts down the database connection.
	Close() error
}

// ============================================================
// Domain Models
// ============================================================

// Document is a raw node document as fetched from its source.
type Document struct {
	Source    string `json:"source"`
	Body      []byte `json:"-"`
	NodeCount int    `json:"node_count"`
	FetchedAt int64  `json:"fetched_at"`
}

// Fetch statuses.
const (
	FetchOK     = "ok"
	FetchError  = "error"
	FetchCached = "cached"
)

// FetchEvent is one entry of the fetch log.
type FetchEvent struct {
	EventID      int64   `json:"event_id"`
	Source       string  `json:"source"`
	Timestamp    int64   `json:"timestamp"`
	DurationMs   int64   `json:"duration_ms"`
	Status       string  `json:"status"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// CacheStats aggregates the cache and the fetch log.
type CacheStats struct {
	Documents  int    `json:"documents"`
	TotalBytes int64  `json:"total_bytes"`
	Fetches    int    `json:"fetches"`
	Failures   int    `json:"failures"`
	LastFetch  *int64 `json:"last_fetch,omitempty"`
}

// ============================================================
// DBService Implementation
// ============================================================

// DBService implements the Store interface using SQLite.
type DBService struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	stmtPutDocument *sql.Stmt
	stmtRecordFetch *sql.Stmt
}

// NewDBService opens (creating if needed) the database at path,
// initializes the schema and prepares hot-path statements.
// Use ":memory:" for an in-memory database in tests.
func NewDBService(path string) (*DBService, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	svc := &DBService{db: db, path: path}

	if err := svc.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	if err := svc.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing statements: %w", err)
	}
	return svc, nil
}

// Path returns the database location.
func (s *DBService) Path() string { return s.path }

func (s *DBService) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading embedded schema: %w", err)
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

func (s *DBService) prepareStatements() error {
	var err error

	s.stmtPutDocument, err = s.db.Prepare(`
		INSERT INTO documents (source, body, node_count, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			body = excluded.body,
			node_count = excluded.node_count,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("preparing PutDocument: %w", err)
	}

	s.stmtRecordFetch, err = s.db.Prepare(`
		INSERT INTO fetch_log (source, timestamp, duration_ms, status, error_message)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing RecordFetch: %w", err)
	}
	return nil
}

// PutDocument inserts or replaces the cached copy of doc.Source.
// A zero FetchedAt is stamped with the current time.
func (s *DBService) PutDocument(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.FetchedAt == 0 {
		doc.FetchedAt = timeutil.NowNano()
	}
	if _, err := s.stmtPutDocument.Exec(doc.Source, doc.Body, doc.NodeCount, doc.FetchedAt); err != nil {
		return fmt.Errorf("caching document %s: %w", doc.Source, err)
	}
	return nil
}

// GetDocument returns the cached document for source.
func (s *DBService) GetDocument(source string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := &Document{}
	err := s.db.QueryRow(`
		SELECT source, body, node_count, fetched_at
		FROM documents
		WHERE source = ?
	`, source).Scan(&doc.Source, &doc.Body, &doc.NodeCount, &doc.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", source, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached document %s: %w", source, err)
	}
	return doc, nil
}

// ListDocuments returns cached documents without their bodies,
// most recently fetched first.
func (s *DBService) ListDocuments(limit int) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT source, node_count, fetched_at
		FROM documents
		ORDER BY fetched_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(&d.Source, &d.NodeCount, &d.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument drops the cached copy of source. Missing documents are
// not an error.
func (s *DBService) DeleteDocument(source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM documents WHERE source = ?`, source); err != nil {
		return fmt.Errorf("deleting document %s: %w", source, err)
	}
	return nil
}

// PurgeDocuments drops every cached document. The fetch log is kept.
func (s *DBService) PurgeDocuments() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM documents`)
	if err != nil {
		return 0, fmt.Errorf("purging documents: %w", err)
	}
	return res.RowsAffected()
}

// RecordFetch appends ev to the fetch log.
func (s *DBService) RecordFetch(ev *FetchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Timestamp == 0 {
		ev.Timestamp = timeutil.NowNano()
	}
	res, err := s.stmtRecordFetch.Exec(ev.Source, ev.Timestamp, ev.DurationMs, ev.Status, ev.ErrorMessage)
	if err != nil {
		return fmt.Errorf("recording fetch of %s: %w", ev.Source, err)
	}
	ev.EventID, _ = res.LastInsertId()
	return nil
}

// FetchHistory returns logged fetches, newest first.
func (s *DBService) FetchHistory(source string, limit int) ([]*FetchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	query := `SELECT event_id, source, timestamp, duration_ms, status, error_message FROM fetch_log WHERE 1=1`
	args := make([]interface{}, 0, 2)
	if source != "" {
		query += ` AND source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY timestamp DESC, event_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fetch history: %w", err)
	}
	defer rows.Close()

	var events []*FetchEvent
	for rows.Next() {
		ev := &FetchEvent{}
		if err := rows.Scan(&ev.EventID, &ev.Source, &ev.Timestamp, &ev.DurationMs, &ev.Status, &ev.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning fetch row: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetCacheStats returns aggregate numbers over the cache and the log.
func (s *DBService) GetCacheStats() (*CacheStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &CacheStats{}
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(LENGTH(body)), 0) FROM documents
	`).Scan(&stats.Documents, &stats.TotalBytes)
	if err != nil {
		return nil, fmt.Errorf("querying document stats: %w", err)
	}

	err = s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
			MAX(timestamp)
		FROM fetch_log
	`).Scan(&stats.Fetches, &stats.Failures, &stats.LastFetch)
	if err != nil {
		return nil, fmt.Errorf("querying fetch stats: %w", err)
	}
	return stats, nil
}

// Close closes prepared statements and the connection.
func (s *DBService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range []*sql.Stmt{s.stmtPutDocument, s.stmtRecordFetch} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
