// Package clustering projects tweet embeddings to 2D and groups them into labelled topics.
package clustering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/llm"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/format"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store/vectors"

	"go.uber.org/zap"
)

const (
	DefaultK        = 6
	defaultLimit    = 2000
	samplesPerLabel = 8
)

var ErrNotEnoughData = errors.New("not enough embedded tweets to cluster")

type Point struct {
	TweetID string  `json:"tweet_id"`
	Author  string  `json:"author"`
	Text    string  `json:"text"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Cluster int     `json:"cluster"`
}

type Cluster struct {
	ID      int      `json:"id"`
	Label   string   `json:"label"`
	Size    int      `json:"size"`
	CenterX float64  `json:"center_x"`
	CenterY float64  `json:"center_y"`
	Samples []string `json:"samples"`
}

type Result struct {
	Points      []Point   `json:"points"`
	Clusters    []Cluster `json:"clusters"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Builder struct {
	lister vectors.Lister
	llm    llm.Completer // optional
	limit  int
}

func NewBuilder(l vectors.Lister, c llm.Completer, limit int) *Builder {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Builder{lister: l, llm: c, limit: limit}
}

// Build loads recent embeddings, reduces them to two dimensions with PCA and partitions
// the projected points into k clusters.
func (b *Builder) Build(ctx context.Context, k int) (*Result, error) {
	records, err := b.lister.All(ctx, b.limit)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrNotEnoughData
	}
	if k <= 0 {
		k = DefaultK
	}
	k = min(k, len(records))

	coords, err := Project(records)
	if err != nil {
		return nil, err
	}

	obs := make(clusters.Observations, len(coords))
	for i, c := range coords {
		obs[i] = clusters.Coordinates{c[0], c[1]}
	}
	cc, err := kmeans.New().Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans: %w", err)
	}

	res := &Result{GeneratedAt: time.Now().UTC()}
	res.Clusters = make([]Cluster, len(cc))
	for i, c := range cc {
		res.Clusters[i] = Cluster{ID: i, Label: fmt.Sprintf("Cluster %d", i+1)}
		if len(c.Center) >= 2 {
			res.Clusters[i].CenterX, res.Clusters[i].CenterY = c.Center[0], c.Center[1]
		}
	}
	res.Points = make([]Point, len(records))
	for i, r := range records {
		ci := cc.Nearest(obs[i])
		res.Points[i] = Point{TweetID: r.TweetID, Author: r.Author, Text: r.Text, X: coords[i][0], Y: coords[i][1], Cluster: ci}
		cl := &res.Clusters[ci]
		cl.Size++
		if len(cl.Samples) < samplesPerLabel && strings.TrimSpace(r.Text) != "" {
			cl.Samples = append(cl.Samples, r.Text)
		}
	}

	if b.llm != nil {
		b.label(ctx, res.Clusters)
	}
	log.LogInfo("Clusters built", zap.Int("points", len(res.Points)), zap.Int("clusters", len(res.Clusters)))
	return res, nil
}

const labelSystem = "You name clusters of crypto tweets. Reply with a topic label of at most four words and nothing else."

// label asks the LLM for a short name per cluster. Failures keep the numbered label.
func (b *Builder) label(ctx context.Context, cs []Cluster) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i := range cs {
		if len(cs[i].Samples) == 0 {
			continue
		}
		g.Go(func() error {
			prompt := "Tweets:\n- " + strings.Join(cs[i].Samples, "\n- ")
			out, err := b.llm.Complete(gctx, labelSystem, prompt)
			if err != nil {
				log.LogWarn("Cluster label failed", zap.Int("cluster", i), zap.Error(err))
				return nil
			}
			if l := cleanLabel(out); l != "" {
				cs[i].Label = l
			}
			return nil
		})
	}
	_ = g.Wait()
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "\"'*. ")
	return format.Truncate(s, 48)
}

// Project reduces each vector to its first two principal components.
func Project(records []vectors.Record) ([][2]float64, error) {
	n := len(records)
	if n == 0 {
		return nil, nil
	}
	d := len(records[0].Vector)
	for _, r := range records {
		if len(r.Vector) != d {
			return nil, fmt.Errorf("embedding %s has %d dimensions, want %d", r.TweetID, len(r.Vector), d)
		}
	}
	out := make([][2]float64, n)
	if d == 0 {
		return out, nil
	}

	data := mat.NewDense(n, d, nil)
	for i, r := range records {
		for j, v := range r.Vector {
			data.Set(i, j, float64(v))
		}
	}
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, data)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			data.Set(i, j, col[i]-mean)
		}
	}
	if d == 1 || n < 2 {
		for i := 0; i < n; i++ {
			out[i][0] = data.At(i, 0)
		}
		return out, nil
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, errors.New("pca did not converge")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, cols := vecs.Dims()
	comps := min(2, cols)

	var proj mat.Dense
	proj.Mul(data, vecs.Slice(0, d, 0, comps))
	for i := 0; i < n; i++ {
		for j := 0; j < comps; j++ {
			out[i][j] = proj.At(i, j)
		}
	}
	return out, nil
}
