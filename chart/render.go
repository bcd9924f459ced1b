// Package chart draws engine chart configs as PNG images.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/spektr-org/usagesim/engine"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("chart: no data to plot")

// Options control the canvas.
type Options struct {
	Width      int
	Height     int
	TextScale  float64 // bitmap font magnification
	LineWidth  float64
	Background string // hex color
}

// DefaultOptions is a 10x4 inch figure at 200 dpi.
func DefaultOptions() Options {
	return Options{
		Width:      2000,
		Height:     800,
		TextScale:  2,
		LineWidth:  3,
		Background: "#FFFFFF",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.TextScale <= 0 {
		o.TextScale = d.TextScale
	}
	if o.LineWidth <= 0 {
		o.LineWidth = d.LineWidth
	}
	if o.Background == "" {
		o.Background = d.Background
	}
	return o
}

const (
	axisColor  = "#333333"
	gridColor  = "#DDDDDD"
	textColor  = "#222222"
	fallbackFg = "#1F77B4"
	yTickCount = 6
)

// plot is the data rectangle inside the canvas margins.
type plot struct {
	left, top, right, bottom float64
	lo, hi                   float64
	n                        int
}

func (p plot) x(i int) float64 {
	if p.n <= 1 {
		return (p.left + p.right) / 2
	}
	return p.left + float64(i)*(p.right-p.left)/float64(p.n-1)
}

func (p plot) y(v float64) float64 {
	return p.bottom - (v-p.lo)/(p.hi-p.lo)*(p.bottom-p.top)
}

// RenderLine draws cfg as a line chart and writes it to w as PNG.
// Each series is plotted against its point index; labels come from the
// longest series.
func RenderLine(cfg *engine.ChartConfig, w io.Writer, opts Options) error {
	if cfg == nil {
		return ErrNoData
	}
	labels := longestSeries(cfg.Series)
	if len(labels) == 0 {
		return ErrNoData
	}
	opts = opts.withDefaults()

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetHexColor(opts.Background)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	s := opts.TextScale
	lineH := 13 * s
	lo, hi := valueRange(cfg.Series)
	ticks := niceTicks(lo, hi, yTickCount)
	p := plot{
		left:   lineH*2 + widestLabel(dc, ticks)*s + 20,
		top:    lineH*2 + 20,
		right:  float64(opts.Width) - 30,
		bottom: float64(opts.Height) - lineH*3 - 20,
		lo:     ticks[0],
		hi:     ticks[len(ticks)-1],
		n:      len(labels),
	}

	xStep := xLabelStep(dc, labels, p.right-p.left, s)

	if cfg.ShowGrid {
		dc.SetHexColor(gridColor)
		dc.SetLineWidth(1)
		for _, v := range ticks {
			dc.DrawLine(p.left, p.y(v), p.right, p.y(v))
		}
		for i := 0; i < p.n; i += xStep {
			dc.DrawLine(p.x(i), p.top, p.x(i), p.bottom)
		}
		dc.Stroke()
	}

	dc.SetHexColor(axisColor)
	dc.SetLineWidth(1.5)
	dc.DrawRectangle(p.left, p.top, p.right-p.left, p.bottom-p.top)
	dc.Stroke()

	// Tick labels.
	dc.SetHexColor(textColor)
	for _, v := range ticks {
		drawText(dc, engine.FormatNumber(engine.RoundTo2(v)), p.left-8, p.y(v), 1, 0.35, s, 0)
	}
	for i := 0; i < p.n; i += xStep {
		drawText(dc, labels[i], p.x(i), p.bottom+8, 0.5, 1, s, 0)
	}

	// Series.
	for si, series := range cfg.Series {
		if len(series.Data) == 0 {
			continue
		}
		dc.SetHexColor(seriesColor(cfg, si))
		dc.SetLineWidth(opts.LineWidth)
		if len(series.Data) == 1 {
			dc.DrawCircle(p.x(0), p.y(series.Data[0].Value), opts.LineWidth*1.5)
			dc.Fill()
			continue
		}
		for i, pt := range series.Data {
			dc.LineTo(p.x(i), p.y(pt.Value))
		}
		dc.Stroke()
	}

	// Titles.
	dc.SetHexColor(textColor)
	if cfg.Title != "" {
		drawText(dc, cfg.Title, float64(opts.Width)/2, p.top/2, 0.5, 0.5, s*1.25, 0)
	}
	if cfg.XAxis != "" {
		drawText(dc, cfg.XAxis, (p.left+p.right)/2, float64(opts.Height)-lineH, 0.5, 0.5, s, 0)
	}
	if cfg.YAxis != "" {
		drawText(dc, cfg.YAxis, lineH, (p.top+p.bottom)/2, 0.5, 0.5, s, -math.Pi/2)
	}

	if cfg.ShowLegend {
		drawLegend(dc, cfg, p, s)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// drawText draws s anchored at (x, y), magnified by scale and rotated by
// angle radians around the anchor.
func drawText(dc *gg.Context, s string, x, y, ax, ay, scale, angle float64) {
	dc.Push()
	if angle != 0 {
		dc.RotateAbout(angle, x, y)
	}
	dc.ScaleAbout(scale, scale, x, y)
	dc.DrawStringAnchored(s, x, y, ax, ay)
	dc.Pop()
}

func drawLegend(dc *gg.Context, cfg *engine.ChartConfig, p plot, scale float64) {
	lineH := 13 * scale * 1.4
	x := p.right - 10
	y := p.top + 10
	for i, series := range cfg.Series {
		w, _ := dc.MeasureString(series.Name)
		w *= scale
		ty := y + float64(i)*lineH + lineH/2
		dc.SetHexColor(seriesColor(cfg, i))
		dc.DrawRectangle(x-w-lineH-6, ty-lineH/4, lineH, lineH/2)
		dc.Fill()
		dc.SetHexColor(textColor)
		drawText(dc, series.Name, x, ty, 1, 0.35, scale, 0)
	}
}

func seriesColor(cfg *engine.ChartConfig, i int) string {
	if c := cfg.Series[i].Color; c != "" {
		return c
	}
	if i < len(cfg.Colors) && cfg.Colors[i] != "" {
		return cfg.Colors[i]
	}
	return fallbackFg
}

func longestSeries(series []engine.ChartSeries) []string {
	var labels []string
	for _, s := range series {
		if len(s.Data) > len(labels) {
			labels = labels[:0]
			for _, pt := range s.Data {
				labels = append(labels, pt.Label)
			}
		}
	}
	return labels
}

func valueRange(series []engine.ChartSeries) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, pt := range s.Data {
			lo = math.Min(lo, pt.Value)
			hi = math.Max(hi, pt.Value)
		}
	}
	return lo, hi
}

func widestLabel(dc *gg.Context, ticks []float64) float64 {
	var widest float64
	for _, v := range ticks {
		w, _ := dc.MeasureString(engine.FormatNumber(engine.RoundTo2(v)))
		widest = math.Max(widest, w)
	}
	return widest
}

// xLabelStep thins x labels so neighbours do not overlap.
func xLabelStep(dc *gg.Context, labels []string, width, scale float64) int {
	var widest float64
	for _, l := range labels {
		w, _ := dc.MeasureString(l)
		widest = math.Max(widest, w*scale)
	}
	if widest == 0 {
		return 1
	}
	fit := int(width / (widest * 1.5))
	if fit < 1 {
		fit = 1
	}
	return int(math.Ceil(float64(len(labels)) / float64(fit)))
}

// niceTicks spans [lo, hi] with about n round-valued ticks.
func niceTicks(lo, hi float64, n int) []float64 {
	if hi <= lo {
		lo, hi = lo-1, hi+1
	}
	step := niceNum((hi - lo) / float64(n-1))
	start := math.Floor(lo/step) * step
	end := math.Ceil(hi/step) * step
	count := int(math.Round((end-start)/step)) + 1

	ticks := make([]float64, count)
	for i := range ticks {
		ticks[i] = start + float64(i)*step
	}
	return ticks
}

func niceNum(x float64) float64 {
	exp := math.Pow(10, math.Floor(math.Log10(x)))
	switch f := x / exp; {
	case f <= 1:
		return exp
	case f <= 2:
		return 2 * exp
	case f <= 5:
		return 5 * exp
	default:
		return 10 * exp
	}
}
