package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	png "image/png"
	"math"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/pro100Roman/plotting-tools/src/stream"
	"github.com/pro100Roman/plotting-tools/src/types"
)

// seriesPalette cycles per tracked key, in configured key order.
var seriesPalette = []drawing.Color{
	{R: 68, G: 102, B: 238, A: 255},
	{R: 0, G: 160, B: 80, A: 255},
	{R: 230, G: 120, B: 20, A: 255},
	{R: 180, G: 60, B: 180, A: 255},
	{R: 200, G: 40, B: 40, A: 255},
	{R: 60, G: 170, B: 170, A: 255},
}

func seriesStyle(i int) chart.Style {
	return chart.Style{
		StrokeWidth: 1.5,
		StrokeColor: seriesPalette[i%len(seriesPalette)],
	}
}

// renderSnapshotChart draws one line per tracked key over the shared time
// axis and returns the decoded image. Axis bounds are rescaled to fit the
// snapshot each frame.
func renderSnapshotChart(snap types.Snapshot, keys []string, title string, w, h int) image.Image {
	defer stream.TimeTrack(time.Now(), "chart render")
	if len(snap.T) == 0 {
		return blank(w, h)
	}
	xs := snap.T
	minY := math.MaxFloat64
	maxY := -math.MaxFloat64
	series := make([]chart.Series, 0, len(keys))
	for i, k := range keys {
		ys := snap.Y[k]
		for _, v := range ys {
			if math.IsNaN(v) {
				continue
			}
			if v < minY {
				minY = v
			}
			if v > maxY {
				maxY = v
			}
		}
		st := seriesStyle(i)
		if len(xs) == 1 {
			// go-chart needs a non-degenerate x range.
			x2 := xs[0] + 1
			series = append(series, chart.ContinuousSeries{Name: k, XValues: []float64{xs[0], x2}, YValues: []float64{ys[0], ys[0]}, Style: st})
		} else {
			series = append(series, chart.ContinuousSeries{Name: k, XValues: xs, YValues: ys, Style: st})
		}
	}

	var yRange *chart.ContinuousRange
	var yTicks []chart.Tick
	if minY != math.MaxFloat64 && maxY != -math.MaxFloat64 {
		nMin, nMax := niceAxisBounds(minY, maxY)
		yRange = &chart.ContinuousRange{Min: nMin, Max: nMax}
		yTicks = niceTicks(nMin, nMax, 6)
	}

	ch := chart.Chart{
		Title:      title,
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 32}},
		XAxis:      chart.XAxis{Name: "Time [s]"},
		YAxis:      chart.YAxis{Name: "Value", Range: yRange, Ticks: yTicks},
		Series:     series,
		Width:      w,
		Height:     h,
	}
	if len(keys) > 1 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		fmt.Printf("[scopeview] chart render error: %v; showing blank fallback\n", err)
		return blank(w, h)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		fmt.Printf("[scopeview] chart decode error: %v; showing blank fallback\n", err)
		return blank(w, h)
	}
	return img
}

// niceAxisBounds pads [min,max] by 5% and rounds outward to the span's order
// of magnitude so axes don't hug the extremes.
func niceAxisBounds(min, max float64) (float64, float64) {
	if math.IsNaN(min) || math.IsNaN(max) {
		return min, max
	}
	if max <= min {
		max = min + 1
	}
	span := max - min
	pad := span * 0.05
	if pad <= 0 {
		pad = 1
	}
	a := min - pad
	b := max + pad
	mag := math.Pow(10, math.Floor(math.Log10(span)))
	if !math.IsInf(mag, 0) && mag > 0 {
		a = math.Floor(a/mag) * mag
		b = math.Ceil(b/mag) * mag
	}
	return a, b
}

// niceTicks generates up to n tick marks between [min, max] using 1/2/2.5/5
// step multiples.
func niceTicks(min, max float64, n int) []chart.Tick {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	span := max - min
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	candidates := []float64{1, 2, 2.5, 5, 10}
	bestStep := mag
	bestScore := math.MaxFloat64
	for _, c := range candidates {
		step := c * mag
		count := math.Ceil((max - min) / step)
		if count < 2 {
			count = 2
		}
		score := math.Abs(count - float64(n))
		if score < bestScore {
			bestScore = score
			bestStep = step
		}
	}
	start := math.Floor(min/bestStep) * bestStep
	end := math.Ceil(max/bestStep) * bestStep
	ticks := []chart.Tick{}
	for v := start; v <= end+bestStep/2; v += bestStep {
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v)})
		if len(ticks) > n+2 {
			break
		}
	}
	return ticks
}

func formatTick(v float64) string {
	if v == 0 {
		return "0"
	}
	av := math.Abs(v)
	switch {
	case av >= 1000:
		return fmt.Sprintf("%.0f", v)
	case av >= 100:
		return fmt.Sprintf("%.0f", v)
	case av >= 10:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func blank(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 18, G: 18, B: 18, A: 255})
		}
	}
	return img
}

// drawStatus draws a small status string onto the image near the bottom-left
// (sample count, logging state).
func drawStatus(img image.Image, text string) image.Image {
	if img == nil || strings.TrimSpace(text) == "" {
		return img
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	pad := 6
	face := basicfont.Face7x13
	textCol := image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	shadowCol := image.NewUniform(color.RGBA{R: 0, G: 0, B: 0, A: 180})
	dr := &font.Drawer{Dst: rgba, Src: textCol, Face: face}
	tw := dr.MeasureString(text).Ceil()
	x := b.Min.X + 8
	y := b.Max.Y - 6
	bg := image.NewUniform(color.RGBA{R: 0, G: 0, B: 0, A: 200})
	rect := image.Rect(x-pad, y-face.Metrics().Ascent.Ceil()-pad, x+tw+pad, y+pad/2)
	draw.Draw(rgba, rect, bg, image.Point{}, draw.Over)
	drShadow := &font.Drawer{Dst: rgba, Src: shadowCol, Face: face, Dot: fixed.Point26_6{X: fixed.I(x + 1), Y: fixed.I(y + 1)}}
	drShadow.DrawString(text)
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(text)
	return rgba
}
