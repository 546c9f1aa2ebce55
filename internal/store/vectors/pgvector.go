package vectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/llm"
)

const table = "tweet_embeddings"

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PgStore keeps embeddings in a postgres table with a pgvector column.
type PgStore struct {
	pool pool
	dims int
}

func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is required for pgvector")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPgStoreWithPool(p), nil
}

// NewPgStoreWithPool wraps an existing pool (tests pass a pgxmock pool).
func NewPgStoreWithPool(p pool) *PgStore {
	return &PgStore{pool: p, dims: llm.EmbeddingDimensions}
}

func (s *PgStore) Close() { s.pool.Close() }

func (s *PgStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tweet_id  TEXT PRIMARY KEY,
			author    TEXT NOT NULL DEFAULT '',
			text      TEXT NOT NULL DEFAULT '',
			posted_at TIMESTAMPTZ,
			embedding vector(%d) NOT NULL
		)`, table, s.dims),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)", table, table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure vector schema: %w", err)
		}
	}
	return nil
}

// Upsert writes all records in one statement, replacing existing embeddings.
func (s *PgStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (tweet_id, author, text, posted_at, embedding) VALUES ", table)
	args := make([]any, 0, len(records)*5)
	for i, r := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, r.TweetID, r.Author, r.Text, r.PostedAt, pgvector.NewVector(r.Vector))
	}
	sb.WriteString(" ON CONFLICT (tweet_id) DO UPDATE SET embedding = EXCLUDED.embedding, text = EXCLUDED.text")

	if _, err := s.pool.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("upsert %d embeddings: %w", len(records), err)
	}
	return nil
}

// Search returns the k nearest tweets by cosine distance.
func (s *PgStore) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		k = 10
	}
	query := fmt.Sprintf(`SELECT tweet_id, author, text, COALESCE(posted_at, 'epoch'), 1 - (embedding <=> $1::vector) AS score
		FROM %s ORDER BY embedding <=> $1::vector LIMIT $2`, table)
	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.TweetID, &m.Author, &m.Text, &m.PostedAt, &m.Score); err != nil {
			return nil, fmt.Errorf("scan vector match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// All returns the most recent embeddings, newest first.
func (s *PgStore) All(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := fmt.Sprintf("SELECT tweet_id, author, text, COALESCE(posted_at, 'epoch'), embedding FROM %s ORDER BY posted_at DESC NULLS LAST LIMIT $1", table)
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r   Record
			vec pgvector.Vector
		)
		if err := rows.Scan(&r.TweetID, &r.Author, &r.Text, &r.PostedAt, &vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		r.Vector = vec.Slice()
		out = append(out, r)
	}
	return out, rows.Err()
}
