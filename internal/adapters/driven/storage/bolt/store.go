// Package bolt provides a bbolt-backed implementation of driven.PageStore.
//
// Pages and chunks are stored as JSON values. A third bucket maps
// "url\x00position" to chunk IDs so that cursor scans return chunks in
// page then position order.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// DBFile is the database file name inside the data directory.
const DBFile = "pages.bolt"

var (
	bucketPages      = []byte("pages")
	bucketChunks     = []byte("chunks")
	bucketPageChunks = []byte("page_chunks")
)

// Ensure Store implements the interface.
var _ driven.PageStore = (*Store)(nil)

type pageRecord struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type chunkRecord struct {
	ID        string    `json:"id"`
	PageURL   string    `json:"page_url"`
	Position  int       `json:"position"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// Store is a bbolt page store.
type Store struct {
	db   *bbolt.DB
	path string
	now  func() time.Time
}

// NewStore opens or creates the store in dataDir.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".hask", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", domain.ErrStorage, err)
	}

	path := filepath.Join(dataDir, DBFile)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", domain.ErrStorage, path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketPages, bucketChunks, bucketPageChunks} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating buckets: %w", domain.ErrStorage, err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a page is stored for url.
func (s *Store) Exists(_ context.Context, url string) (bool, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return false, err
	}
	var found bool
	err = s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketPages).Get([]byte(key)) != nil
		return nil
	})
	if err != nil {
		return false, storageErr("checking page", err)
	}
	return found, nil
}

// Upsert creates or updates the page for url.
func (s *Store) Upsert(_ context.Context, url, title, content string) (*domain.UpsertResult, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	hash := domain.HashContent(content)
	now := s.now().UTC()

	var res domain.UpsertResult
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPages)

		var rec pageRecord
		data := b.Get([]byte(key))
		exists := data != nil
		if exists {
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("decoding page: %w", err)
			}
		} else {
			rec = pageRecord{URL: key, CreatedAt: now}
		}

		res.Created = !exists
		res.ContentChanged = !exists || rec.ContentHash != hash

		if title != "" || !exists {
			rec.Title = title
		}
		rec.Content = content
		rec.ContentHash = hash
		rec.FetchedAt = now

		encoded, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding page: %w", err)
		}
		res.Page = rec.toDomain()
		return b.Put([]byte(key), encoded)
	})
	if err != nil {
		return nil, storageErr("saving page", err)
	}
	return &res, nil
}

// Get retrieves a page.
func (s *Store) Get(_ context.Context, url string) (*domain.Page, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	var page *domain.Page
	err = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPages).Get([]byte(key))
		if data == nil {
			return domain.ErrNotFound
		}
		var rec pageRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decoding page: %w", err)
		}
		page = rec.toDomain()
		return nil
	})
	if err != nil {
		return nil, storageErr("reading page", err)
	}
	return page, nil
}

// List returns all pages, most recently fetched first.
func (s *Store) List(_ context.Context) ([]domain.Page, error) {
	var pages []domain.Page
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPages).ForEach(func(_, v []byte) error {
			var rec pageRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding page: %w", err)
			}
			pages = append(pages, *rec.toDomain())
			return nil
		})
	})
	if err != nil {
		return nil, storageErr("listing pages", err)
	}
	sortByFetched(pages)
	return pages, nil
}

// Delete removes a page and its chunks.
func (s *Store) Delete(_ context.Context, url string) error {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPages)
		if b.Get([]byte(key)) == nil {
			return domain.ErrNotFound
		}
		if err := dropChunks(tx, key); err != nil {
			return err
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return storageErr("deleting page", err)
	}
	return nil
}

// ReplaceChunks atomically swaps the chunk set of a page.
func (s *Store) ReplaceChunks(_ context.Context, url string, chunks []domain.Chunk) error {
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

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketPages).Get([]byte(key)) == nil {
			return domain.ErrNotFound
		}
		if err := dropChunks(tx, key); err != nil {
			return err
		}

		cb := tx.Bucket(bucketChunks)
		ib := tx.Bucket(bucketPageChunks)
		for _, c := range chunks {
			data, err := json.Marshal(chunkRecord{
				ID:        c.ID,
				PageURL:   key,
				Position:  c.Position,
				Content:   c.Content,
				Embedding: c.Embedding,
			})
			if err != nil {
				return fmt.Errorf("encoding chunk: %w", err)
			}
			if err := cb.Put([]byte(c.ID), data); err != nil {
				return err
			}
			if err := ib.Put(positionKey(key, c.Position), []byte(c.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("replacing chunks", err)
	}
	return nil
}

// DeleteChunks removes all chunks of a page.
func (s *Store) DeleteChunks(_ context.Context, url string) error {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(tx *bbolt.Tx) error { return dropChunks(tx, key) }); err != nil {
		return storageErr("deleting chunks", err)
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *Store) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	var chunk *domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(id))
		if data == nil {
			return domain.ErrNotFound
		}
		c, err := decodeChunk(data)
		chunk = c
		return err
	})
	if err != nil {
		return nil, storageErr("reading chunk", err)
	}
	return chunk, nil
}

// GetChunks retrieves all chunks for a page, ordered by position.
func (s *Store) GetChunks(_ context.Context, url string) ([]domain.Chunk, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	chunks := []domain.Chunk{}
	err = s.db.View(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketChunks)
		prefix := pagePrefix(key)
		c := tx.Bucket(bucketPageChunks).Cursor()
		for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = c.Next() {
			chunk, err := decodeChunk(cb.Get(id))
			if err != nil {
				return err
			}
			chunks = append(chunks, *chunk)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("reading chunks", err)
	}
	return chunks, nil
}

// ListChunks returns every stored chunk, ordered by page then position.
func (s *Store) ListChunks(_ context.Context) ([]domain.Chunk, error) {
	chunks := []domain.Chunk{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketChunks)
		return tx.Bucket(bucketPageChunks).ForEach(func(_, id []byte) error {
			chunk, err := decodeChunk(cb.Get(id))
			if err != nil {
				return err
			}
			chunks = append(chunks, *chunk)
			return nil
		})
	})
	if err != nil {
		return nil, storageErr("listing chunks", err)
	}
	return chunks, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// dropChunks removes every chunk of key inside tx.
func dropChunks(tx *bbolt.Tx, key string) error {
	cb := tx.Bucket(bucketChunks)
	ib := tx.Bucket(bucketPageChunks)
	prefix := pagePrefix(key)

	var keys, ids [][]byte
	c := ib.Cursor()
	for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
		ids = append(ids, append([]byte(nil), id...))
	}
	for i := range keys {
		if err := cb.Delete(ids[i]); err != nil {
			return err
		}
		if err := ib.Delete(keys[i]); err != nil {
			return err
		}
	}
	return nil
}

func pagePrefix(key string) []byte {
	return append([]byte(key), 0)
}

func positionKey(key string, position int) []byte {
	buf := pagePrefix(key)
	return binary.BigEndian.AppendUint64(buf, uint64(position))
}

func decodeChunk(data []byte) (*domain.Chunk, error) {
	if data == nil {
		return nil, fmt.Errorf("dangling chunk reference")
	}
	var rec chunkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding chunk: %w", err)
	}
	return &domain.Chunk{
		ID:        rec.ID,
		PageURL:   rec.PageURL,
		Position:  rec.Position,
		Content:   rec.Content,
		Embedding: rec.Embedding,
	}, nil
}

func (r pageRecord) toDomain() *domain.Page {
	return &domain.Page{
		URL:         r.URL,
		Title:       r.Title,
		Content:     r.Content,
		ContentHash: r.ContentHash,
		CreatedAt:   r.CreatedAt,
		FetchedAt:   r.FetchedAt,
	}
}

func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

func sortByFetched(pages []domain.Page) {
	sort.Slice(pages, func(i, j int) bool {
		if !pages[i].FetchedAt.Equal(pages[j].FetchedAt) {
			return pages[i].FetchedAt.After(pages[j].FetchedAt)
		}
		return pages[i].URL < pages[j].URL
	})
}
