package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uneeb123/alpha-hunter-sub000/internal/features/ask"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/clustering"
)

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthzSetsRequestID(t *testing.T) {
	h := NewServer(Deps{}, Options{}).Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/healthz", "", map[string]string{requestIDHeader: "abc"})
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))
}

func TestJobRequiresCronSecret(t *testing.T) {
	calls := 0
	job := func(context.Context) (any, error) {
		calls++
		return map[string]int{"upserted": 3}, nil
	}
	h := NewServer(Deps{UpdateTokens: job}, Options{CronSecret: "s3cret"}).Handler()

	rec := do(t, h, http.MethodGet, "/api/update-tokens", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/update-tokens", "", map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, calls)

	rec = do(t, h, http.MethodPost, "/api/update-tokens", "", map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(3), body["result"].(map[string]any)["upserted"])
	assert.Equal(t, 1, calls)
}

func TestJobErrorsAndMissingJobs(t *testing.T) {
	failing := func(context.Context) (any, error) { return nil, errors.New("birdeye down") }
	h := NewServer(Deps{Alert: failing}, Options{}).Handler()

	rec := do(t, h, http.MethodGet, "/api/alert", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "birdeye down", decode(t, rec)["error"])

	rec = do(t, h, http.MethodGet, "/api/fetch-tweets", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJobPanicIsRecovered(t *testing.T) {
	boom := func(context.Context) (any, error) { panic("nil map") }
	h := NewServer(Deps{EmbedTweets: boom}, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/embed-tweets", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode(t, rec)["error"])
}

type fakeAsker struct{ question string }

func (f *fakeAsker) Answer(_ context.Context, q string) (*ask.Answer, error) {
	f.question = q
	if strings.TrimSpace(q) == "" {
		return nil, ask.ErrEmptyQuestion
	}
	return &ask.Answer{Question: q, Answer: "JUP is trending"}, nil
}

func TestAsk(t *testing.T) {
	asker := &fakeAsker{}
	h := NewServer(Deps{Ask: asker}, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/ask", `{"question":"what is trending?"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "JUP is trending", decode(t, rec)["answer"])
	assert.Equal(t, "what is trending?", asker.question)

	rec = do(t, h, http.MethodPost, "/api/ask", `{"question":"  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/ask", `{`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadRoutesRequireToken(t *testing.T) {
	h := NewServer(Deps{Ask: &fakeAsker{}, Clusters: &fakeClusters{}}, Options{CronSecret: "cron", ReadToken: "reader"}).Handler()
	body := `{"question":"what is trending?"}`

	rec := do(t, h, http.MethodPost, "/api/ask", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/visualization/clusters", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/visualization/clusters.png", "", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/ask", body, map[string]string{"Authorization": "Bearer reader"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/ask", body, map[string]string{"Authorization": "Bearer cron"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/visualization/clusters", "", map[string]string{"Authorization": "Bearer reader"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The read token does not unlock job routes.
	rec = do(t, h, http.MethodGet, "/api/alert", "", map[string]string{"Authorization": "Bearer reader"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fakeClusters struct {
	calls int
	err   error
}

func (f *fakeClusters) Build(_ context.Context, k int) (*clustering.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &clustering.Result{
		Points: []clustering.Point{
			{TweetID: "1", X: -1, Y: 0.5, Cluster: 0},
			{TweetID: "2", X: 1, Y: -0.5, Cluster: 1},
		},
		Clusters: []clustering.Cluster{{ID: 0, Label: "Memes", Size: 1}, {ID: 1, Label: "Yield", Size: 1}},
	}, nil
}

func TestClustersAreCached(t *testing.T) {
	fc := &fakeClusters{}
	h := NewServer(Deps{Clusters: fc}, Options{}).Handler()

	rec := do(t, h, http.MethodGet, "/api/visualization/clusters?k=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res clustering.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Clusters, 2)
	assert.Equal(t, "Memes", res.Clusters[0].Label)

	rec = do(t, h, http.MethodGet, "/api/visualization/clusters.png?k=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))
	assert.Equal(t, 1, fc.calls)

	rec = do(t, h, http.MethodGet, "/api/visualization/clusters?k=99", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClustersNotEnoughData(t *testing.T) {
	h := NewServer(Deps{Clusters: &fakeClusters{err: clustering.ErrNotEnoughData}}, Options{}).Handler()
	rec := do(t, h, http.MethodGet, "/api/visualization/clusters", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeUpdates struct {
	got []tgbotapi.Update
	err error
}

func (f *fakeUpdates) HandleUpdate(_ context.Context, u tgbotapi.Update) error {
	f.got = append(f.got, u)
	return f.err
}

func TestTelegramWebhook(t *testing.T) {
	fu := &fakeUpdates{err: errors.New("send failed")}
	h := NewServer(Deps{Telegram: fu}, Options{WebhookSecret: "hook"}).Handler()
	body := `{"update_id":42,"message":{"message_id":1,"date":0,"chat":{"id":7,"type":"private"},"text":"/start"}}`

	rec := do(t, h, http.MethodPost, "/api/telegram/webhook", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, fu.got)

	rec = do(t, h, http.MethodPost, "/api/telegram/webhook", body, map[string]string{telegramSecretHeader: "hook"})
	require.Equal(t, http.StatusOK, rec.Code, "handler errors are still acknowledged")
	require.Len(t, fu.got, 1)
	assert.Equal(t, 42, fu.got[0].UpdateID)
	assert.Equal(t, "/start", fu.got[0].Message.Text)

	rec = do(t, h, http.MethodPost, "/api/telegram/webhook", "nope", map[string]string{telegramSecretHeader: "hook"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
