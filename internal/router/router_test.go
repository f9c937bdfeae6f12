package router

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signalbot/internal/models"
	"signalbot/internal/store/memory"
)

type fakeMicroblog struct{}

func (fakeMicroblog) Enabled() bool                                              { return false }
func (fakeMicroblog) PostText(ctx context.Context, body string) error            { return nil }
func (fakeMicroblog) PostWithImage(ctx context.Context, body, path string) error { return nil }

type fakeChat struct {
	sent []string
}

func (f *fakeChat) SendMessage(ctx context.Context, body string) error {
	f.sent = append(f.sent, body)
	return nil
}

func newTestRouter(t *testing.T, flags Flags) (*Router, *memory.Store, *fakeChat) {
	t.Helper()
	st := memory.New()
	chatClient := &fakeChat{}
	r := New(st, fakeMicroblog{}, chatClient, nil, t.TempDir(), "XRPUSD", flags)
	return r, st, chatClient
}

func TestE6_DedupOfHourly(t *testing.T) {
	r, st, chatClient := newTestRouter(t, Flags{HourlyTweet: true})
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 10, 2, 0, 0, time.UTC)
	st.AppendSample(ctx, models.Sample{Ts: base, Symbol: "XRPUSD", Last: decimal.NewFromFloat(0.98)})

	r.Tick(ctx, base)
	if len(chatClient.sent) != 1 {
		t.Fatalf("expected exactly one hourly post, got %d", len(chatClient.sent))
	}

	second := base.Add(1 * time.Minute)
	st.AppendSample(ctx, models.Sample{Ts: second, Symbol: "XRPUSD", Last: decimal.NewFromFloat(0.985)})
	r.Tick(ctx, second)

	third := base.Add(2 * time.Minute)
	st.AppendSample(ctx, models.Sample{Ts: third, Symbol: "XRPUSD", Last: decimal.NewFromFloat(0.99)})
	r.Tick(ctx, third)

	if len(chatClient.sent) != 1 {
		t.Fatalf("expected dedup to suppress same-hour posts, got %d total", len(chatClient.sent))
	}
}

func TestHourlyUpdate_FiresAgainNextHour(t *testing.T) {
	r, st, chatClient := newTestRouter(t, Flags{HourlyTweet: true})
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 10, 1, 0, 0, time.UTC)
	st.AppendSample(ctx, models.Sample{Ts: first, Symbol: "XRPUSD", Last: decimal.NewFromFloat(0.98)})
	r.Tick(ctx, first)

	nextHour := time.Date(2026, 1, 1, 11, 1, 0, 0, time.UTC)
	st.AppendSample(ctx, models.Sample{Ts: nextHour, Symbol: "XRPUSD", Last: decimal.NewFromFloat(0.99)})
	r.Tick(ctx, nextHour)

	if len(chatClient.sent) != 2 {
		t.Fatalf("expected one post per hour, got %d", len(chatClient.sent))
	}
}

func TestHourlyUpdate_SkippedPastMinuteCutoff(t *testing.T) {
	r, st, chatClient := newTestRouter(t, Flags{HourlyTweet: true})
	ctx := context.Background()

	late := time.Date(2026, 1, 1, 10, 10, 0, 0, time.UTC)
	st.AppendSample(ctx, models.Sample{Ts: late, Symbol: "XRPUSD", Last: decimal.NewFromFloat(0.98)})
	r.Tick(ctx, late)

	if len(chatClient.sent) != 0 {
		t.Fatalf("expected no post past the minute cutoff, got %d", len(chatClient.sent))
	}
}

func TestVolatilityAlert_FiresOnLargeMove(t *testing.T) {
	r, st, chatClient := newTestRouter(t, Flags{VolatilityAlert: true})
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	st.AppendSample(ctx, models.Sample{Ts: t0, Symbol: "XRPUSD", Last: decimal.NewFromFloat(1.0)})
	r.Tick(ctx, t0)

	t1 := t0.Add(16 * time.Minute)
	st.AppendSample(ctx, models.Sample{Ts: t1, Symbol: "XRPUSD", Last: decimal.NewFromFloat(0.97)})
	r.Tick(ctx, t1)

	if len(chatClient.sent) != 1 {
		t.Fatalf("expected a volatility alert, got %d posts", len(chatClient.sent))
	}
}

func TestVolatilityAlert_SuppressedBelowThreshold(t *testing.T) {
	r, st, chatClient := newTestRouter(t, Flags{VolatilityAlert: true})
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	st.AppendSample(ctx, models.Sample{Ts: t0, Symbol: "XRPUSD", Last: decimal.NewFromFloat(1.0)})
	r.Tick(ctx, t0)

	t1 := t0.Add(16 * time.Minute)
	st.AppendSample(ctx, models.Sample{Ts: t1, Symbol: "XRPUSD", Last: decimal.NewFromFloat(0.995)})
	r.Tick(ctx, t1)

	if len(chatClient.sent) != 0 {
		t.Fatalf("expected no alert under threshold, got %d posts", len(chatClient.sent))
	}
}

func TestPublishTrade_Unconditional(t *testing.T) {
	r, _, chatClient := newTestRouter(t, Flags{})
	ctx := context.Background()

	r.PublishTrade(ctx, models.Event{Kind: models.TradeBuy, Price: decimal.NewFromFloat(0.98), Ts: time.Now()})

	if len(chatClient.sent) != 1 {
		t.Fatalf("expected trade event to be forwarded, got %d posts", len(chatClient.sent))
	}
}
