package vectors

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/pinecone"
)

func TestPgStoreUpsertSingleStatement(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPgStoreWithPool(mock)
	posted := time.Unix(1700000000, 0).UTC()
	records := []Record{
		{TweetID: "1", Author: "alice", Text: "gm", PostedAt: posted, Vector: []float32{0.1, 0.2}},
		{TweetID: "2", Author: "bob", Text: "wagmi", PostedAt: posted, Vector: []float32{0.3, 0.4}},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tweet_embeddings (tweet_id, author, text, posted_at, embedding) VALUES ($1, $2, $3, $4, $5), ($6, $7, $8, $9, $10) ON CONFLICT (tweet_id)")).
		WithArgs(
			"1", "alice", "gm", posted, pgvector.NewVector([]float32{0.1, 0.2}),
			"2", "bob", "wagmi", posted, pgvector.NewVector([]float32{0.3, 0.4}),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	require.NoError(t, store.Upsert(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreUpsertEmptyIsNoop(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	require.NoError(t, NewPgStoreWithPool(mock).Upsert(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreUpsertError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO tweet_embeddings").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))

	err = NewPgStoreWithPool(mock).Upsert(context.Background(), []Record{{TweetID: "1", Vector: []float32{1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPgStoreSearch(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	posted := time.Unix(1700000000, 0).UTC()
	rows := mock.NewRows([]string{"tweet_id", "author", "text", "posted_at", "score"}).
		AddRow("7", "alice", "sol to 500", posted, 0.91).
		AddRow("8", "bob", "bonk season", posted, 0.75)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY embedding <=> $1::vector LIMIT $2")).
		WithArgs(pgvector.NewVector([]float32{1, 0}), 2).
		WillReturnRows(rows)

	matches, err := NewPgStoreWithPool(mock).Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "7", matches[0].TweetID)
	assert.Equal(t, "alice", matches[0].Author)
	assert.InDelta(t, 0.91, matches[0].Score, 1e-9)
	assert.Equal(t, posted, matches[1].PostedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("embedding vector(1536)")).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("USING hnsw").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, NewPgStoreWithPool(mock).EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

type fakePinecone struct {
	upserted []pinecone.Vector
	matches  []pinecone.Match
	err      error
}

func (f *fakePinecone) Upsert(_ context.Context, _ string, vectors []pinecone.Vector) (int, error) {
	f.upserted = append(f.upserted, vectors...)
	return len(vectors), f.err
}

func (f *fakePinecone) Query(_ context.Context, _ string, _ []float32, _ int) ([]pinecone.Match, error) {
	return f.matches, f.err
}

func TestPineconeIndexRoundTripsMetadata(t *testing.T) {
	t.Parallel()

	posted := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakePinecone{matches: []pinecone.Match{{
		ID:    "42",
		Score: 0.8,
		Metadata: map[string]any{
			"author": "alice", "text": "gm", "posted_at": posted.Format(time.RFC3339),
		},
	}}}
	idx := NewPineconeIndex(fake)

	require.NoError(t, idx.Upsert(context.Background(), []Record{{TweetID: "42", Author: "alice", Text: "gm", PostedAt: posted, Vector: []float32{1}}}))
	require.Len(t, fake.upserted, 1)
	assert.Equal(t, "42", fake.upserted[0].ID)
	assert.Equal(t, "gm", fake.upserted[0].Metadata["text"])

	matches, err := idx.Search(context.Background(), []float32{1}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, Match{TweetID: "42", Author: "alice", Text: "gm", PostedAt: posted, Score: 0.8}, matches[0])
}

type listIndex struct {
	fakeIndex
	records []Record
}

func (l *listIndex) All(context.Context, int) ([]Record, error) { return l.records, nil }

type fakeIndex struct {
	upserts int
	err     error
}

func (f *fakeIndex) Upsert(context.Context, []Record) error {
	f.upserts++
	return f.err
}

func (f *fakeIndex) Search(context.Context, []float32, int) ([]Match, error) {
	return []Match{{TweetID: "first"}}, nil
}

func TestMulti(t *testing.T) {
	t.Parallel()

	a := &fakeIndex{err: errors.New("pinecone down")}
	b := &listIndex{records: []Record{{TweetID: "r1"}}}
	m := Multi{a, b}

	err := m.Upsert(context.Background(), []Record{{TweetID: "1"}})
	require.Error(t, err)
	assert.Equal(t, 1, a.upserts)
	assert.Equal(t, 1, b.upserts, "later indexes still receive records")

	matches, err := m.Search(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, "first", matches[0].TweetID)

	records, err := m.All(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "r1", records[0].TweetID)

	_, err = Multi{a}.All(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNoListing)
}

func TestAsLister(t *testing.T) {
	t.Parallel()

	_, err := AsLister(&fakeIndex{})
	assert.ErrorIs(t, err, ErrNoListing)

	l, err := AsLister(&listIndex{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}
