package chart

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signalbot/internal/models"
)

func sample(ts time.Time, last float64) models.Sample {
	return models.Sample{Ts: ts, Symbol: "XRPUSD", Last: decimal.NewFromFloat(last)}
}

func TestResample_BucketsIntoQuarterHours(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	samples := []models.Sample{
		sample(base, 1.0),
		sample(base.Add(5*time.Minute), 1.05),
		sample(base.Add(10*time.Minute), 0.95),
		sample(base.Add(15*time.Minute), 1.1),
	}

	candles := Resample(samples)
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}

	first := candles[0]
	if !first.Open.Equal(decimal.NewFromFloat(1.0)) {
		t.Errorf("expected open 1.0, got %s", first.Open)
	}
	if !first.High.Equal(decimal.NewFromFloat(1.05)) {
		t.Errorf("expected high 1.05, got %s", first.High)
	}
	if !first.Low.Equal(decimal.NewFromFloat(0.95)) {
		t.Errorf("expected low 0.95, got %s", first.Low)
	}
	if !first.Close.Equal(decimal.NewFromFloat(0.95)) {
		t.Errorf("expected close 0.95, got %s", first.Close)
	}
}

func TestResample_Empty(t *testing.T) {
	if candles := Resample(nil); candles != nil {
		t.Errorf("expected nil candles for no samples, got %v", candles)
	}
}

func TestSMA_FillsAfterWindow(t *testing.T) {
	candles := []Candle{
		{Close: decimal.NewFromFloat(1)},
		{Close: decimal.NewFromFloat(2)},
		{Close: decimal.NewFromFloat(3)},
	}

	sma := SMA(candles, 3)
	if sma[0] == sma[0] { // NaN is the only value unequal to itself
		t.Errorf("expected NaN before window fills, got %v", sma[0])
	}
	if sma[2] != 2.0 {
		t.Errorf("expected SMA-3 of [1,2,3] = 2.0, got %v", sma[2])
	}
}

func TestEMA_SeedsWithFirstClose(t *testing.T) {
	candles := []Candle{
		{Close: decimal.NewFromFloat(10)},
		{Close: decimal.NewFromFloat(20)},
	}

	ema := EMA(candles, 21)
	if ema[0] != 10.0 {
		t.Errorf("expected EMA seeded at first close 10.0, got %v", ema[0])
	}
	if ema[1] <= 10.0 || ema[1] >= 20.0 {
		t.Errorf("expected EMA[1] between seed and new close, got %v", ema[1])
	}
}

func TestCleanupCharts_RemovesOnlyOldMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

	old := filepath.Join(dir, FilenamePrefix+"old.png")
	fresh := filepath.Join(dir, FilenamePrefix+"fresh.png")
	unrelated := filepath.Join(dir, "notes.txt")

	for _, p := range []string{old, fresh, unrelated} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("setup write %s: %v", p, err)
		}
	}

	oldTime := now.Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(old, oldTime, oldTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	CleanupCharts(dir, 14, now)

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("expected old chart to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("expected fresh chart to survive, got %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Errorf("expected unrelated file to survive, got %v", err)
	}
}
