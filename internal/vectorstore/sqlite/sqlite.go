package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"ragdoc/internal/domain"
	"ragdoc/internal/vectorstore"
	"ragdoc/internal/vectorstore/memory"
)

// Storage keeps named vector indexes in a single SQLite file. Queries are
// ranked by cosine similarity in process.
type Storage struct {
	db        *sql.DB
	batchSize int
}

// Open opens or creates the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string, batchSize int) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", domain.ErrVectorStore, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if batchSize <= 0 {
		batchSize = vectorstore.DefaultBatchSize
	}
	s := &Storage{db: db, batchSize: batchSize}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("%w: pragma failed: %v", domain.ErrVectorStore, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS indexes (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL,
			metric TEXT NOT NULL DEFAULT 'cosine'
		);
		CREATE TABLE IF NOT EXISTS vectors (
			index_name TEXT NOT NULL REFERENCES indexes(name) ON DELETE CASCADE,
			id TEXT NOT NULL,
			embedding BLOB NOT NULL,
			metadata TEXT,
			PRIMARY KEY (index_name, id)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: schema creation failed: %v", domain.ErrVectorStore, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) EnsureIndex(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrVectorStore, dimension)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO indexes (name, dimension, metric) VALUES (?, ?, 'cosine')", name, dimension)
	if err != nil {
		return fmt.Errorf("%w: create index %q: %v", domain.ErrVectorStore, name, err)
	}
	return nil
}

func (s *Storage) ListIndexes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM indexes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("%w: list indexes: %v", domain.ErrVectorStore, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *Storage) dimension(ctx context.Context, name string) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, "SELECT dimension FROM indexes WHERE name = ?", name).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: index %q does not exist", domain.ErrVectorStore, name)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
	}
	return dim, nil
}

// Upsert replaces records by id, one transaction per batch.
func (s *Storage) Upsert(ctx context.Context, name string, records []domain.Record) error {
	dim, err := s.dimension(ctx, name)
	if err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: vector %s has dimension %d, index %q expects %d", domain.ErrVectorStore, r.ID, len(r.Vector), name, dim)
		}
	}
	for _, batch := range vectorstore.Batches(records, s.batchSize) {
		if err := s.saveBatch(ctx, name, batch); err != nil {
			return fmt.Errorf("%w: upsert into %q: %v", domain.ErrVectorStore, name, err)
		}
	}
	return nil
}

func (s *Storage) saveBatch(ctx context.Context, name string, batch []domain.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO vectors (index_name, id, embedding, metadata) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range batch {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, name, r.ID, encodeFloat64Slice(r.Vector), string(meta)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query scans the index and returns the topK most similar vectors.
func (s *Storage) Query(ctx context.Context, name string, vector []float64, topK int) ([]domain.SimilarityMatch, error) {
	if _, err := s.dimension(ctx, name); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, embedding, metadata FROM vectors WHERE index_name = ? ORDER BY rowid", name)
	if err != nil {
		return nil, fmt.Errorf("%w: query %q: %v", domain.ErrVectorStore, name, err)
	}
	defer rows.Close()

	var matches []domain.SimilarityMatch
	for rows.Next() {
		var (
			id   string
			emb  []byte
			meta sql.NullString
		)
		if err := rows.Scan(&id, &emb, &meta); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
		}
		var md domain.ChunkMetadata
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &md); err != nil {
				return nil, fmt.Errorf("%w: corrupt metadata for %s: %v", domain.ErrVectorStore, id, err)
			}
		}
		matches = append(matches, domain.SimilarityMatch{
			ID:    id,
			Score: memory.Cosine(vector, decodeFloat64Slice(emb)),
			Text:  md.Text,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// encodeFloat64Slice converts []float64 to little-endian bytes.
func encodeFloat64Slice(f []float64) []byte {
	buf := make([]byte, len(f)*8)
	for i, v := range f {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeFloat64Slice(b []byte) []float64 {
	f := make([]float64, len(b)/8)
	for i := range f {
		f[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return f
}
