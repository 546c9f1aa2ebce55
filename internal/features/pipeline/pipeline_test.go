package pipeline

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uneeb123/alpha-hunter-sub000/internal/notify"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	alphas    map[string]store.Alpha
	tweets    []store.Tweet
	since     time.Time
	runs      []store.Processor
	saved     []store.Processor
	chats     []store.Chat
	createErr error
}

func (f *fakeStore) GetAlpha(_ context.Context, name string) (*store.Alpha, error) {
	a, ok := f.alphas[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (f *fakeStore) TweetsForAlpha(_ context.Context, _ []string, since time.Time) ([]store.Tweet, error) {
	f.since = since
	return f.tweets, nil
}

func (f *fakeStore) CreateProcessor(_ context.Context, alphaName string) (*store.Processor, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	p := store.Processor{RunID: "run-" + alphaName, AlphaName: alphaName, Status: store.ProcessorPending}
	f.runs = append(f.runs, p)
	return &p, nil
}

func (f *fakeStore) PendingProcessors(context.Context, int) ([]store.Processor, error) {
	var out []store.Processor
	for _, p := range f.runs {
		if p.Status != store.ProcessorPublished && p.Status != store.ProcessorFailed {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateProcessor(_ context.Context, p *store.Processor) error {
	f.saved = append(f.saved, *p)
	for i := range f.runs {
		if f.runs[i].RunID == p.RunID {
			f.runs[i] = *p
		}
	}
	return nil
}

func (f *fakeStore) SubscribedChats(context.Context, string) ([]store.Chat, error) {
	return f.chats, nil
}

type scriptedLLM struct {
	systems []string
	err     error
}

func (s *scriptedLLM) Complete(_ context.Context, system, _ string) (string, error) {
	s.systems = append(s.systems, system)
	if s.err != nil {
		return "", s.err
	}
	if system == summarySystem {
		return " - SOL rotation\n - JUP airdrop ", nil
	}
	return "HOST A: gm", nil
}

type fakeImages struct{}

func (fakeImages) GenerateImage(context.Context, string) (string, error) {
	return "https://fal.media/cover.png", nil
}

type fakeThread struct {
	parts [][]string
}

func (f *fakeThread) PostThread(_ context.Context, parts []string) ([]string, error) {
	f.parts = append(f.parts, parts)
	ids := make([]string, len(parts))
	for i := range parts {
		ids[i] = "t" + string(rune('1'+i))
	}
	return ids, nil
}

type recorder struct {
	msgs []notify.Message
}

func (r *recorder) Notify(_ context.Context, m notify.Message) error {
	r.msgs = append(r.msgs, m)
	return nil
}

func newFixture() *fakeStore {
	return &fakeStore{
		alphas: map[string]store.Alpha{"degens": {Name: "degens", Handles: []string{"alice"}}},
		tweets: []store.Tweet{{AuthorUsername: "alice", Text: "sol <3"}},
		chats:  []store.Chat{{TelegramChatID: 10}, {TelegramChatID: 20}},
	}
}

func TestRunAdvancesThroughEveryStage(t *testing.T) {
	st := newFixture()
	llm := &scriptedLLM{}
	thread := &fakeThread{}
	rec := &recorder{}
	svc := NewService(st, llm, rec, Options{Images: fakeImages{}, Thread: thread, Now: func() time.Time { return now }})

	p, err := svc.Start(context.Background(), "degens")
	require.NoError(t, err)
	assert.Equal(t, store.ProcessorPending, p.Status)

	want := []string{store.ProcessorSummarized, store.ProcessorScripted, store.ProcessorIllustrated, store.ProcessorPublished}
	for _, status := range want {
		res, err := svc.Check(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Advanced)
		assert.Equal(t, status, st.runs[0].Status)
	}

	run := st.runs[0]
	assert.Equal(t, "- SOL rotation\n - JUP airdrop", run.Summary)
	assert.Equal(t, "HOST A: gm", run.Script)
	assert.Equal(t, "https://fal.media/cover.png", run.ImageURL)
	assert.Equal(t, []string{"t1"}, []string(run.TweetIDs))
	assert.Equal(t, 4, run.Attempts)
	assert.Equal(t, now.Add(-24*time.Hour), st.since)

	require.Len(t, rec.msgs, 2)
	assert.Equal(t, int64(10), rec.msgs[0].ChatID)
	assert.Equal(t, "https://fal.media/cover.png", rec.msgs[0].PhotoURL)
	assert.Contains(t, rec.msgs[0].Text, "<b>degens daily summary</b>")

	res, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Checked, "published runs are terminal")
}

func TestStageFailureMarksRunFailed(t *testing.T) {
	st := newFixture()
	svc := NewService(st, &scriptedLLM{err: errors.New("overloaded")}, nil, Options{Now: func() time.Time { return now }})
	_, err := svc.Start(context.Background(), "degens")
	require.NoError(t, err)

	res, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, store.ProcessorFailed, st.runs[0].Status)
	assert.Contains(t, st.runs[0].Error, "overloaded")
}

func TestNoTweetsFailsRun(t *testing.T) {
	st := newFixture()
	st.tweets = nil
	svc := NewService(st, &scriptedLLM{}, nil, Options{})
	_, err := svc.Start(context.Background(), "degens")
	require.NoError(t, err)

	_, err = svc.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ErrNoTweets.Error(), st.runs[0].Error)
}

func TestImageStageSkippedWithoutGenerator(t *testing.T) {
	p := &store.Processor{RunID: "r", Status: store.ProcessorScripted}
	svc := NewService(newFixture(), &scriptedLLM{}, nil, Options{})
	require.NoError(t, svc.Advance(context.Background(), p))
	assert.Equal(t, store.ProcessorIllustrated, p.Status)
	assert.Empty(t, p.ImageURL)

	p.Status = store.ProcessorFailed
	assert.Error(t, svc.Advance(context.Background(), p))
}

func TestStartUnknownAlpha(t *testing.T) {
	svc := NewService(newFixture(), &scriptedLLM{}, nil, Options{})
	_, err := svc.Start(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSplitThread(t *testing.T) {
	assert.Nil(t, SplitThread("  ", 280))
	assert.Equal(t, []string{"short"}, SplitThread("short", 280))

	long := strings.Repeat("word ", 120)
	parts := SplitThread(long, 100)
	require.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 100)
	}
	assert.True(t, strings.HasSuffix(parts[0], "(1/"+strconv.Itoa(len(parts))+")"))

	huge := strings.Repeat("x", 250)
	for _, p := range SplitThread(huge, 100) {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 100)
	}
}

func TestCoverPromptKeepsValidUTF8(t *testing.T) {
	prompt := coverPrompt("Degens", strings.Repeat("日本", 200))
	assert.True(t, utf8.ValidString(prompt))
	assert.Contains(t, prompt, strings.Repeat("日本", 150))
	assert.NotContains(t, prompt, strings.Repeat("日本", 151))
}
