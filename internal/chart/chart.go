// Package chart renders a dark-themed candlestick PNG from a run of ticker
// samples: 15-minute OHLC resampling, SMA-5/EMA-21 overlay, and disk
// house-keeping for generated files.
package chart

import (
	"fmt"
	"image/color"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"signalbot/internal/models"
)

const (
	candleInterval = 15 * time.Minute
	smaWindow      = 5
	emaWindow      = 21
	// FilenamePrefix is the fixed prefix every rendered chart file uses,
	// also matched by CleanupCharts to find candidates for deletion.
	FilenamePrefix = "xrp_candlestick_chart_"
)

// Candle is one resampled OHLC bucket.
type Candle struct {
	Ts    time.Time
	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
}

// Resample buckets samples into UTC quarter-hour-aligned OHLC candles,
// ordered by bucket start time ascending.
func Resample(samples []models.Sample) []Candle {
	if len(samples) == 0 {
		return nil
	}

	buckets := make(map[int64]*Candle)
	var order []int64

	for _, s := range samples {
		bucketStart := s.Ts.UTC().Truncate(candleInterval)
		key := bucketStart.Unix()

		c, ok := buckets[key]
		if !ok {
			c = &Candle{Ts: bucketStart, Open: s.Last, High: s.Last, Low: s.Last, Close: s.Last}
			buckets[key] = c
			order = append(order, key)
			continue
		}
		if s.Last.GreaterThan(c.High) {
			c.High = s.Last
		}
		if s.Last.LessThan(c.Low) {
			c.Low = s.Last
		}
		c.Close = s.Last
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	candles := make([]Candle, 0, len(order))
	for _, key := range order {
		candles = append(candles, *buckets[key])
	}
	return candles
}

// SMA computes the simple moving average of window n over candle closes.
// Entries before the window fills are NaN.
func SMA(candles []Candle, n int) []float64 {
	out := make([]float64, len(candles))
	sum := 0.0
	for i, c := range candles {
		f, _ := c.Close.Float64()
		sum += f
		if i >= n {
			prev, _ := candles[i-n].Close.Float64()
			sum -= prev
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		} else {
			out[i] = nan()
		}
	}
	return out
}

// EMA computes the exponential moving average of window n over candle
// closes, seeded with the first close.
func EMA(candles []Candle, n int) []float64 {
	out := make([]float64, len(candles))
	if len(candles) == 0 {
		return out
	}
	k := 2.0 / (float64(n) + 1)
	prev, _ := candles[0].Close.Float64()
	out[0] = prev
	for i := 1; i < len(candles); i++ {
		f, _ := candles[i].Close.Float64()
		prev = f*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

func nan() float64 {
	var zero float64
	return zero / zero
}

// Render draws a dark-themed candlestick chart with SMA-5 (solid) and
// EMA-21 (dashed) overlays to a new file under dir, and returns the
// file's path.
func Render(samples []models.Sample, dir string, now time.Time) (string, error) {
	candles := Resample(samples)
	if len(candles) == 0 {
		return "", fmt.Errorf("chart: no samples to render")
	}

	p := plot.New()
	p.Title.Text = "XRP/USD"
	p.BackgroundColor = color.RGBA{R: 0x12, G: 0x12, B: 0x12, A: 0xff}
	axisColor := color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	p.Title.TextStyle.Color = axisColor
	p.X.Color = axisColor
	p.Y.Color = axisColor
	p.X.Label.TextStyle.Color = axisColor
	p.Y.Label.TextStyle.Color = axisColor
	p.X.Tick.Label.Color = axisColor
	p.Y.Tick.Label.Color = axisColor
	p.Y.Label.Text = "price (USD)"
	p.Legend.TextStyle.Color = axisColor

	candleSticks := &candlestickPlotter{candles: candles}
	p.Add(candleSticks)

	smaLine, err := overlayLine(candles, SMA(candles, smaWindow), draw.LineStyle{
		Color: color.RGBA{R: 0x3d, G: 0x9b, B: 0xe9, A: 0xff},
		Width: vg.Points(1.5),
	})
	if err == nil {
		p.Add(smaLine)
		p.Legend.Add(fmt.Sprintf("SMA-%d", smaWindow), smaLine)
	}

	emaLine, err := overlayLine(candles, EMA(candles, emaWindow), draw.LineStyle{
		Color:  color.RGBA{R: 0xe9, G: 0xa3, B: 0x3d, A: 0xff},
		Width:  vg.Points(1.5),
		Dashes: []vg.Length{vg.Points(4), vg.Points(3)},
	})
	if err == nil {
		p.Add(emaLine)
		p.Legend.Add(fmt.Sprintf("EMA-%d", emaWindow), emaLine)
	}

	watermark, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: float64(len(candles)) - 1, Y: 0}},
		Labels: []string{"xrp signal service"},
	})
	if err == nil {
		p.Add(watermark)
	}

	path := fmt.Sprintf("%s/%s%s.png", dir, FilenamePrefix, now.UTC().Format("20060102_150405"))
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("chart: save: %w", err)
	}
	return path, nil
}

func overlayLine(candles []Candle, values []float64, style draw.LineStyle) (*plotter.Line, error) {
	var xys plotter.XYs
	for i, v := range values {
		if v != v { // NaN, window not yet filled
			continue
		}
		xys = append(xys, plotter.XY{X: float64(i), Y: v})
	}
	if len(xys) == 0 {
		return nil, fmt.Errorf("chart: no points for overlay")
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.LineStyle = style
	return line, nil
}

// candlestickPlotter draws OHLC wicks and bodies, green for close >= open
// and red otherwise.
type candlestickPlotter struct {
	candles []Candle
}

func (cs *candlestickPlotter) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)

	bullish := color.RGBA{R: 0x2e, G: 0xc7, B: 0x6d, A: 0xff}
	bearish := color.RGBA{R: 0xd9, G: 0x3f, B: 0x3f, A: 0xff}

	for i, candle := range cs.candles {
		x := trX(float64(i))
		open, _ := candle.Open.Float64()
		high, _ := candle.High.Float64()
		low, _ := candle.Low.Float64()
		cl, _ := candle.Close.Float64()

		col := bullish
		if cl < open {
			col = bearish
		}

		wick := draw.LineStyle{Color: col, Width: vg.Points(1)}
		c.StrokeLine2(wick, x, trY(low), x, trY(high))

		bodyTop, bodyBottom := open, cl
		if bodyBottom > bodyTop {
			bodyTop, bodyBottom = bodyBottom, bodyTop
		}
		halfWidth := vg.Points(3)
		body := c.ClipLinesXY([][]draw.Point{{
			{X: x - halfWidth, Y: trY(bodyBottom)},
			{X: x + halfWidth, Y: trY(bodyBottom)},
			{X: x + halfWidth, Y: trY(bodyTop)},
			{X: x - halfWidth, Y: trY(bodyTop)},
			{X: x - halfWidth, Y: trY(bodyBottom)},
		}})
		for _, poly := range body {
			c.FillPolygon(col, poly)
		}
	}
}

func (cs *candlestickPlotter) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = 0, float64(len(cs.candles)-1)
	for i, candle := range cs.candles {
		low, _ := candle.Low.Float64()
		high, _ := candle.High.Float64()
		if i == 0 || low < ymin {
			ymin = low
		}
		if i == 0 || high > ymax {
			ymax = high
		}
	}
	return xmin, xmax, ymin, ymax
}
