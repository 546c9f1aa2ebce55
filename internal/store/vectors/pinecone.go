package vectors

import (
	"context"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/pinecone"
)

type pineconeClient interface {
	Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) (int, error)
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]pinecone.Match, error)
}

// PineconeIndex adapts a Pinecone index. Tweet fields travel as vector metadata.
type PineconeIndex struct {
	client pineconeClient
}

func NewPineconeIndex(c pineconeClient) *PineconeIndex {
	return &PineconeIndex{client: c}
}

func (p *PineconeIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	vecs := make([]pinecone.Vector, len(records))
	for i, r := range records {
		vecs[i] = pinecone.Vector{
			ID:     r.TweetID,
			Values: r.Vector,
			Metadata: map[string]any{
				"author":    r.Author,
				"text":      r.Text,
				"posted_at": r.PostedAt.UTC().Format(time.RFC3339),
			},
		}
	}
	_, err := p.client.Upsert(ctx, "", vecs)
	return err
}

func (p *PineconeIndex) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	matches, err := p.client.Query(ctx, "", vector, k)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		match := Match{
			TweetID: m.ID,
			Score:   m.Score,
			Author:  metaString(m.Metadata, "author"),
			Text:    metaString(m.Metadata, "text"),
		}
		if ts, err := time.Parse(time.RFC3339, metaString(m.Metadata, "posted_at")); err == nil {
			match.PostedAt = ts
		}
		out = append(out, match)
	}
	return out, nil
}

func metaString(meta map[string]any, key string) string {
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}
