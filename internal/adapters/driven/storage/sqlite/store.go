package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/hask/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// DBFile is the database file name inside the data directory.
const DBFile = "pages.db"

// Store is a SQLite-based storage for pages and chunks.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.hask/data/pages.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".hask", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", domain.ErrStorage, err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStorage, err)
	}

	// One connection serialises writers; read-then-write transactions would
	// otherwise fail with SQLITE_BUSY on lock upgrade.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %w", domain.ErrStorage, err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrStorage, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// PageStore returns a PageStore interface backed by this store.
func (s *Store) PageStore() driven.PageStore {
	return &pageStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_init.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Page Store ====================

// pageStore implements driven.PageStore.
type pageStore struct {
	store *Store
}

var _ driven.PageStore = (*pageStore)(nil)

// Exists reports whether a page is stored for url.
func (s *pageStore) Exists(ctx context.Context, url string) (bool, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return false, err
	}
	var n int
	err = s.store.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM pages WHERE url = ?", key).Scan(&n)
	if err != nil {
		return false, storageErr("checking page", err)
	}
	return n > 0, nil
}

// Upsert creates or updates the page for url.
func (s *pageStore) Upsert(ctx context.Context, url, title, content string) (*domain.UpsertResult, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	hash := domain.HashContent(content)
	now := s.store.now().UTC()

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		storedTitle, storedHash string
		createdAt               time.Time
	)
	err = tx.QueryRowContext(ctx,
		"SELECT title, content_hash, created_at FROM pages WHERE url = ?", key,
	).Scan(&storedTitle, &storedHash, &createdAt)

	exists := true
	switch {
	case errors.Is(err, sql.ErrNoRows):
		exists = false
		createdAt = now
	case err != nil:
		return nil, storageErr("reading page", err)
	}

	if exists && title == "" {
		title = storedTitle
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (url, title, content, content_hash, created_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			content_hash = excluded.content_hash,
			fetched_at = excluded.fetched_at
	`, key, title, content, hash, createdAt, now)
	if err != nil {
		return nil, storageErr("saving page", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("committing transaction", err)
	}

	return &domain.UpsertResult{
		Page: &domain.Page{
			URL:         key,
			Title:       title,
			Content:     content,
			ContentHash: hash,
			CreatedAt:   createdAt,
			FetchedAt:   now,
		},
		Created:        !exists,
		ContentChanged: !exists || storedHash != hash,
	}, nil
}

// Get retrieves a page.
func (s *pageStore) Get(ctx context.Context, url string) (*domain.Page, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	row := s.store.db.QueryRowContext(ctx, `
		SELECT url, title, content, content_hash, created_at, fetched_at
		FROM pages WHERE url = ?
	`, key)

	var p domain.Page
	if err := row.Scan(&p.URL, &p.Title, &p.Content, &p.ContentHash, &p.CreatedAt, &p.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("scanning page", err)
	}
	return &p, nil
}

// List returns all pages, most recently fetched first.
func (s *pageStore) List(ctx context.Context) ([]domain.Page, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT url, title, content, content_hash, created_at, fetched_at
		FROM pages ORDER BY fetched_at DESC, url
	`)
	if err != nil {
		return nil, storageErr("querying pages", err)
	}
	defer rows.Close()

	var pages []domain.Page //nolint:prealloc // size unknown from query
	for rows.Next() {
		var p domain.Page
		if err := rows.Scan(&p.URL, &p.Title, &p.Content, &p.ContentHash, &p.CreatedAt, &p.FetchedAt); err != nil {
			return nil, storageErr("scanning page", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating pages", err)
	}
	return pages, nil
}

// Delete removes a page and, by cascade, its chunks.
func (s *pageStore) Delete(ctx context.Context, url string) error {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return err
	}
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM pages WHERE url = ?", key)
	if err != nil {
		return storageErr("deleting page", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReplaceChunks atomically swaps the chunk set of a page.
func (s *pageStore) ReplaceChunks(ctx context.Context, url string, chunks []domain.Chunk) error {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if c.PageURL != key {
			return fmt.Errorf("%w: chunk %s belongs to %s", domain.ErrInvalidInput, c.ID, c.PageURL)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, c.ID)
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM pages WHERE url = ?", key).Scan(&n); err != nil {
		return storageErr("checking page", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE page_url = ?", key); err != nil {
		return storageErr("deleting chunks", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, page_url, position, content, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storageErr("preparing statement", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, key, c.Position, c.Content,
			float32SliceToBytes(c.Embedding)); err != nil {
			return storageErr("saving chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing transaction", err)
	}
	return nil
}

// DeleteChunks removes all chunks of a page.
func (s *pageStore) DeleteChunks(ctx context.Context, url string) error {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return err
	}
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE page_url = ?", key); err != nil {
		return storageErr("deleting chunks", err)
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *pageStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, page_url, position, content, embedding
		FROM chunks WHERE id = ?
	`, id)

	var c domain.Chunk
	var blob []byte
	if err := row.Scan(&c.ID, &c.PageURL, &c.Position, &c.Content, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("scanning chunk", err)
	}
	c.Embedding = bytesToFloat32Slice(blob)
	return &c, nil
}

// GetChunks retrieves all chunks for a page, ordered by position.
func (s *pageStore) GetChunks(ctx context.Context, url string) ([]domain.Chunk, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, page_url, position, content, embedding
		FROM chunks WHERE page_url = ?
		ORDER BY position
	`, key)
	if err != nil {
		return nil, storageErr("querying chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ListChunks returns every stored chunk, ordered by page then position.
func (s *pageStore) ListChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, page_url, position, content, embedding
		FROM chunks ORDER BY page_url, position
	`)
	if err != nil {
		return nil, storageErr("querying chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// Close closes the underlying store.
func (s *pageStore) Close() error {
	return s.store.Close()
}

// ==================== Helper Functions ====================

func storageErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

// scanChunks drains rows into chunks.
func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	chunks := []domain.Chunk{}
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.PageURL, &c.Position, &c.Content, &blob); err != nil {
			return nil, storageErr("scanning chunk", err)
		}
		c.Embedding = bytesToFloat32Slice(blob)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating chunks", err)
	}
	return chunks, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
