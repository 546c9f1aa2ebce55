package clustering

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"

	"go.uber.org/zap"
)

const (
	chartWidth  = 1600
	chartHeight = 1000

	plotLeft   = 80.0
	plotRight  = 1180.0
	plotTop    = 110.0
	plotBottom = 920.0

	legendX      = 1230.0
	legendY      = 140.0
	legendStepY  = 46.0
	legendSwatch = 18.0

	pointRadius   = 4.0
	titleFontSize = 36.0
	labelFontSize = 22.0
)

var palette = []color.RGBA{
	{0x4e, 0x79, 0xa7, 0xff},
	{0xf2, 0x8e, 0x2b, 0xff},
	{0xe1, 0x57, 0x59, 0xff},
	{0x76, 0xb7, 0xb2, 0xff},
	{0x59, 0xa1, 0x4f, 0xff},
	{0xed, 0xc9, 0x48, 0xff},
	{0xb0, 0x7a, 0xa1, 0xff},
	{0xff, 0x9d, 0xa7, 0xff},
	{0x9c, 0x75, 0x5f, 0xff},
	{0xba, 0xb0, 0xac, 0xff},
}

var fontPaths = []string{
	"etc/fonts/InterVariable.ttf",
	"etc/fonts/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"/Library/Fonts/Arial.ttf",
}

// findFont returns the first readable font path, or "" to use gg's built-in face.
func findFont() string {
	for _, p := range fontPaths {
		if _, err := os.Stat(filepath.Clean(p)); err == nil {
			return p
		}
	}
	return ""
}

func setFont(dc *gg.Context, path string, size float64) {
	if path == "" {
		return
	}
	if err := dc.LoadFontFace(path, size); err != nil {
		log.LogWarn("Font file exists but failed to load", zap.String("path", path), zap.Error(err))
	}
}

// Render draws the clusters as a scatter plot with a legend and returns PNG bytes.
func Render(res *Result) ([]byte, error) {
	if res == nil || len(res.Points) == 0 {
		return nil, ErrNotEnoughData
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(color.RGBA{0x12, 0x14, 0x1a, 0xff})
	dc.Clear()

	font := findFont()
	setFont(dc, font, titleFontSize)
	dc.SetColor(color.White)
	dc.DrawString(fmt.Sprintf("Tweet topics (%d tweets)", len(res.Points)), plotLeft, 64)

	minX, maxX, minY, maxY := bounds(res.Points)
	scaleX := func(x float64) float64 { return plotLeft + (x-minX)/(maxX-minX)*(plotRight-plotLeft) }
	scaleY := func(y float64) float64 { return plotBottom - (y-minY)/(maxY-minY)*(plotBottom-plotTop) }

	dc.SetColor(color.RGBA{0x3a, 0x3f, 0x4b, 0xff})
	dc.SetLineWidth(1)
	dc.DrawRectangle(plotLeft, plotTop, plotRight-plotLeft, plotBottom-plotTop)
	dc.Stroke()

	for _, p := range res.Points {
		dc.SetColor(clusterColor(p.Cluster))
		dc.DrawCircle(scaleX(p.X), scaleY(p.Y), pointRadius)
		dc.Fill()
	}

	setFont(dc, font, labelFontSize)
	for i, c := range res.Clusters {
		y := legendY + float64(i)*legendStepY
		if y > plotBottom {
			break
		}
		dc.SetColor(clusterColor(c.ID))
		dc.DrawRectangle(legendX, y-legendSwatch, legendSwatch, legendSwatch)
		dc.Fill()
		dc.SetColor(color.White)
		dc.DrawString(fmt.Sprintf("%s (%d)", c.Label, c.Size), legendX+legendSwatch+12, y)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode cluster chart: %w", err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("cluster chart is empty after rendering")
	}
	return buf.Bytes(), nil
}

func clusterColor(i int) color.RGBA {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

// bounds pads the data range by 5% and never returns an empty span.
func bounds(points []Point) (minX, maxX, minY, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	pad := func(lo, hi float64) (float64, float64) {
		span := hi - lo
		if span == 0 {
			return lo - 1, hi + 1
		}
		return lo - span*0.05, hi + span*0.05
	}
	minX, maxX = pad(minX, maxX)
	minY, maxY = pad(minY, maxY)
	return minX, maxX, minY, maxY
}
