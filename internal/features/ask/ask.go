// Package ask answers questions from the embedded tweet corpus.
package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/llm"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store/vectors"

	"go.uber.org/zap"
)

const (
	DefaultTopK    = 8
	maxQuestionLen = 1000
)

var ErrEmptyQuestion = errors.New("question is empty")

const systemPrompt = `You are a crypto research assistant. Answer using only the tweets provided.
Cite tweets by their [n] number. If the tweets do not answer the question, say so briefly.`

type Source struct {
	TweetID  string    `json:"tweet_id"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	URL      string    `json:"url"`
	PostedAt time.Time `json:"posted_at"`
	Score    float64   `json:"score"`
}

type Answer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
}

type Service struct {
	embedder  llm.Embedder
	index     vectors.Index
	completer llm.Completer
	topK      int
}

func NewService(e llm.Embedder, idx vectors.Index, c llm.Completer, topK int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{embedder: e, index: idx, completer: c, topK: topK}
}

// Answer embeds the question, retrieves the closest tweets and asks the LLM to answer
// from them.
func (s *Service) Answer(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if len(question) > maxQuestionLen {
		question = question[:maxQuestionLen]
	}

	vecs, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors", len(vecs))
	}
	matches, err := s.index.Search(ctx, vecs[0], s.topK)
	if err != nil {
		return nil, fmt.Errorf("search tweets: %w", err)
	}

	out := &Answer{Question: question, Sources: make([]Source, len(matches))}
	for i, m := range matches {
		out.Sources[i] = Source{
			TweetID:  m.TweetID,
			Author:   m.Author,
			Text:     m.Text,
			URL:      tweetURL(m.Author, m.TweetID),
			PostedAt: m.PostedAt,
			Score:    m.Score,
		}
	}
	if len(matches) == 0 {
		out.Answer = "No tweets found for that question yet."
		return out, nil
	}

	answer, err := s.completer.Complete(ctx, systemPrompt, BuildPrompt(question, matches))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	out.Answer = strings.TrimSpace(answer)
	log.LogDebug("Answered question", zap.Int("sources", len(matches)))
	return out, nil
}

// BuildPrompt numbers the context tweets so the model can cite them.
func BuildPrompt(question string, matches []vectors.Match) string {
	var sb strings.Builder
	sb.WriteString("Tweets:\n")
	for i, m := range matches {
		fmt.Fprintf(&sb, "[%d] @%s", i+1, m.Author)
		if !m.PostedAt.IsZero() {
			fmt.Fprintf(&sb, " (%s)", m.PostedAt.UTC().Format("2006-01-02"))
		}
		fmt.Fprintf(&sb, ": %s\n", strings.ReplaceAll(m.Text, "\n", " "))
	}
	fmt.Fprintf(&sb, "\nQuestion: %s", question)
	return sb.String()
}

func tweetURL(author, id string) string {
	if author == "" {
		return "https://x.com/i/status/" + id
	}
	return "https://x.com/" + author + "/status/" + id
}
