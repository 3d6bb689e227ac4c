// Package pgvector implements vector.Store on PostgreSQL with the pgvector
// extension. Each collection is its own table; a registry table records the
// dimension of every collection.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/efebarandurmaz/codefinder/internal/vector"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const registryTable = "codefinder_collections"

// Store implements vector.Store using a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn and prepares the extension and registry table.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvector connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapErr("ping", err)
	}

	s := &Store{pool: pool}
	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS ` + registryTable + ` (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);
	`
	_, err := s.pool.Exec(ctx, query)
	return wrapErr("init", err)
}

func table(name string) string {
	return pgx.Identifier{"collection_" + name}.Sanitize()
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT name FROM "+registryTable+" ORDER BY name")
	if err != nil {
		return nil, wrapErr("list collections", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapErr("list collections", err)
	}
	return names, nil
}

// CreateCollection creates the table and its cosine HNSW index.
func (s *Store) CreateCollection(ctx context.Context, name string, dim int) error {
	t := table(name)
	index := pgx.Identifier{"collection_" + name + "_embedding_idx"}.Sanitize()
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "INSERT INTO "+registryTable+" (name, dimension) VALUES ($1, $2)", name, dim); err != nil {
			return wrapErr("create collection", err)
		}
		query := fmt.Sprintf(`
		CREATE TABLE %s (
			id UUID PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			payload JSONB NOT NULL
		);
		CREATE INDEX %s ON %s USING hnsw (embedding vector_cosine_ops);
		`, t, dim, index, t)
		_, err := tx.Exec(ctx, query)
		return wrapErr("create collection", err)
	})
}

// Upsert writes every record in one transaction; the commit is the
// acknowledgement.
func (s *Store) Upsert(ctx context.Context, name string, records []vector.Record) error {
	if err := s.exists(ctx, name); err != nil {
		return err
	}
	query := `INSERT INTO ` + table(name) + ` (id, embedding, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			payload = EXCLUDED.payload`

	batch := &pgx.Batch{}
	for _, r := range records {
		payload, err := json.Marshal(r.Payload)
		if err != nil {
			return fmt.Errorf("encoding payload %s: %w", r.ID, err)
		}
		batch.Queue(query, r.ID, pgvector.NewVector(r.Vector), payload)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return wrapErr("upsert", tx.SendBatch(ctx, batch).Close())
	})
}

func (s *Store) Search(ctx context.Context, name string, vec []float32, k int) ([]vector.SearchResult, error) {
	if err := s.exists(ctx, name); err != nil {
		return nil, err
	}
	query := `
		SELECT id::text, payload, 1 - (embedding <=> $1) AS score
		FROM ` + table(name) + `
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, wrapErr("search", err)
	}
	defer rows.Close()

	var results []vector.SearchResult
	for rows.Next() {
		var (
			r       vector.SearchResult
			payload []byte
			score   float64
		)
		if err := rows.Scan(&r.ID, &payload, &score); err != nil {
			return nil, wrapErr("search", err)
		}
		if err := json.Unmarshal(payload, &r.Payload); err != nil {
			return nil, fmt.Errorf("decoding payload %s: %w", r.ID, err)
		}
		r.Score = float32(score)
		results = append(results, r)
	}
	return results, wrapErr("search", rows.Err())
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	if err := s.exists(ctx, name); err != nil {
		return 0, err
	}
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+table(name)).Scan(&n); err != nil {
		return 0, wrapErr("count", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) exists(ctx context.Context, name string) error {
	var found bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+registryTable+" WHERE name = $1)", name).Scan(&found)
	if err != nil {
		return wrapErr("lookup collection", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	return nil
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("pgvector %s: %w: %w", op, vector.ErrResponseHandling, err)
	}
	return fmt.Errorf("pgvector %s: %w", op, err)
}

var _ vector.Store = (*Store)(nil)
