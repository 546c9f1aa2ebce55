package clustering

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uneeb123/alpha-hunter-sub000/internal/store/vectors"
)

type staticLister struct {
	records []vectors.Record
	err     error
}

func (s staticLister) All(context.Context, int) ([]vectors.Record, error) { return s.records, s.err }

type labeller struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (l *labeller) Complete(_ context.Context, _, prompt string) (string, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.fail {
		return "", errors.New("llm unavailable")
	}
	if strings.Contains(prompt, "memecoin") {
		return "\"Memecoin mania\"\nextra", nil
	}
	return "Staking yields.", nil
}

// twoTopics builds two tight, far apart blobs in 4 dimensions.
func twoTopics() []vectors.Record {
	var out []vectors.Record
	for i := range 6 {
		jitter := float32(i) * 0.01
		out = append(out,
			vectors.Record{TweetID: fmt.Sprintf("m%d", i), Text: "memecoin pump", Vector: []float32{10 + jitter, 10, 0, jitter}},
			vectors.Record{TweetID: fmt.Sprintf("s%d", i), Text: "staking apy", Vector: []float32{-10, -10 + jitter, jitter, 0}},
		)
	}
	return out
}

func TestBuildSeparatesTopics(t *testing.T) {
	lab := &labeller{}
	res, err := NewBuilder(staticLister{records: twoTopics()}, lab, 0).Build(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, res.Points, 12)
	require.Len(t, res.Clusters, 2)

	byPrefix := map[byte]map[int]bool{'m': {}, 's': {}}
	for _, p := range res.Points {
		byPrefix[p.TweetID[0]][p.Cluster] = true
	}
	require.Len(t, byPrefix['m'], 1, "memecoin tweets share a cluster")
	require.Len(t, byPrefix['s'], 1, "staking tweets share a cluster")
	var mc, sc int
	for c := range byPrefix['m'] {
		mc = c
	}
	for c := range byPrefix['s'] {
		sc = c
	}
	assert.NotEqual(t, mc, sc)

	assert.Equal(t, "Memecoin mania", res.Clusters[mc].Label)
	assert.Equal(t, "Staking yields", res.Clusters[sc].Label)
	assert.Equal(t, 6, res.Clusters[mc].Size)
	assert.Equal(t, 2, lab.calls)
}

func TestBuildKeepsNumberedLabelsOnLLMFailure(t *testing.T) {
	res, err := NewBuilder(staticLister{records: twoTopics()}, &labeller{fail: true}, 0).Build(context.Background(), 2)
	require.NoError(t, err)
	for i, c := range res.Clusters {
		assert.Equal(t, fmt.Sprintf("Cluster %d", i+1), c.Label)
	}
}

func TestBuildCapsKAndRejectsTinyInput(t *testing.T) {
	recs := twoTopics()[:3]
	res, err := NewBuilder(staticLister{records: recs}, nil, 0).Build(context.Background(), 10)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Clusters), 3)

	_, err = NewBuilder(staticLister{records: recs[:1]}, nil, 0).Build(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotEnoughData)

	_, err = NewBuilder(staticLister{err: vectors.ErrNoListing}, nil, 0).Build(context.Background(), 2)
	assert.ErrorIs(t, err, vectors.ErrNoListing)
}

func TestProjectUsesPrincipalAxis(t *testing.T) {
	// Points vary only along the first axis, so PC1 carries all of the spread.
	recs := []vectors.Record{
		{TweetID: "a", Vector: []float32{-2, 0, 0}},
		{TweetID: "b", Vector: []float32{0, 0, 0}},
		{TweetID: "c", Vector: []float32{2, 0, 0}},
	}
	coords, err := Project(recs)
	require.NoError(t, err)
	require.Len(t, coords, 3)

	assert.InDelta(t, 0, coords[1][0], 1e-9)
	assert.InDelta(t, 2, abs(coords[0][0]), 1e-9)
	assert.InDelta(t, 2, abs(coords[2][0]), 1e-9)
	for _, c := range coords {
		assert.InDelta(t, 0, c[1], 1e-9)
	}
}

func TestProjectRejectsMixedDimensions(t *testing.T) {
	_, err := Project([]vectors.Record{{TweetID: "a", Vector: []float32{1, 2}}, {TweetID: "b", Vector: []float32{1}}})
	assert.Error(t, err)
}

func TestRenderPNG(t *testing.T) {
	res := &Result{
		Points:   []Point{{X: 0, Y: 0, Cluster: 0}, {X: 1, Y: 2, Cluster: 1}, {X: 1, Y: 2, Cluster: 1}},
		Clusters: []Cluster{{ID: 0, Label: "Memes", Size: 1}, {ID: 1, Label: "Yields", Size: 2}},
	}
	data, err := Render(res)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, chartWidth, img.Bounds().Dx())
	assert.Equal(t, chartHeight, img.Bounds().Dy())

	_, err = Render(&Result{})
	assert.ErrorIs(t, err, ErrNotEnoughData)
}

func TestBoundsNeverEmpty(t *testing.T) {
	minX, maxX, minY, maxY := bounds([]Point{{X: 3, Y: 3}})
	assert.Less(t, minX, maxX)
	assert.Less(t, minY, maxY)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestCleanLabelCutsOnRuneBoundary(t *testing.T) {
	label := cleanLabel("\"" + strings.Repeat("é", 60) + "\"\nsecond line")
	assert.Equal(t, 48, utf8.RuneCountInString(label))
	assert.True(t, utf8.ValidString(label))
}
