package chart

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/usagesim/engine"
)

func dauConfig(values ...float64) *engine.ChartConfig {
	points := make([]engine.ChartPoint, len(values))
	for i, v := range values {
		points[i] = engine.ChartPoint{Label: "2024-01-0" + string(rune('1'+i)), Value: v}
	}
	return &engine.ChartConfig{
		ChartType: "line",
		Title:     "Daily Active Users (DAU)",
		XAxis:     "Date",
		YAxis:     "DAU",
		ShowGrid:  true,
		Series:    []engine.ChartSeries{{Name: "DAU", Data: points, Color: "#1F77B4"}},
	}
}

func countColor(t *testing.T, data []byte, want color.RGBA) int {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if uint8(r>>8) == want.R && uint8(g>>8) == want.G && uint8(bl>>8) == want.B {
				n++
			}
		}
	}
	return n
}

func TestRenderLine_DefaultSize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderLine(dauConfig(410, 432, 398, 455, 470), &buf, Options{}))

	cfg, err := png.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Width)
	assert.Equal(t, 800, cfg.Height)

	assert.Positive(t, countColor(t, buf.Bytes(), color.RGBA{R: 0x1F, G: 0x77, B: 0xB4}), "series line drawn")
}

func TestRenderLine_CustomSizeAndSinglePoint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderLine(dauConfig(12), &buf, Options{Width: 400, Height: 200, TextScale: 1}))

	cfg, err := png.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
	assert.Positive(t, countColor(t, buf.Bytes(), color.RGBA{R: 0x1F, G: 0x77, B: 0xB4}))
}

func TestRenderLine_MultiSeriesLegend(t *testing.T) {
	cfg := dauConfig(1, 2, 3)
	cfg.ShowLegend = true
	cfg.Series = append(cfg.Series, engine.ChartSeries{
		Name: "web",
		Data: []engine.ChartPoint{{Label: "2024-01-01", Value: 3}, {Label: "2024-01-02", Value: 1}},
	})
	cfg.Colors = []string{"#1F77B4", "#EF4444"}

	var buf bytes.Buffer
	require.NoError(t, RenderLine(cfg, &buf, Options{Width: 600, Height: 300}))
	assert.Positive(t, countColor(t, buf.Bytes(), color.RGBA{R: 0xEF, G: 0x44, B: 0x44}))
}

func TestRenderLine_NoData(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderLine(nil, &buf, Options{}), ErrNoData)
	assert.ErrorIs(t, RenderLine(&engine.ChartConfig{}, &buf, Options{}), ErrNoData)
	assert.ErrorIs(t, RenderLine(dauConfig(), &buf, Options{}), ErrNoData)
	assert.Zero(t, buf.Len())
}

func TestNiceTicks(t *testing.T) {
	assert.Equal(t, []float64{380, 400, 420, 440, 460, 480}, niceTicks(398, 470, 6))

	flat := niceTicks(5, 5, 6)
	assert.LessOrEqual(t, flat[0], 4.0)
	assert.GreaterOrEqual(t, flat[len(flat)-1], 6.0)

	for _, tc := range []struct{ in, want float64 }{
		{0.7, 1}, {1.5, 2}, {3, 5}, {7, 10}, {14.4, 20},
	} {
		assert.InDelta(t, tc.want, niceNum(tc.in), 1e-9, "niceNum(%v)", tc.in)
	}
}
