package query

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signalbot/internal/models"
	"signalbot/internal/store/memory"
	"signalbot/internal/ticker"
)

func TestHandlePrice_NoSampleYet(t *testing.T) {
	r := New(memory.New())
	got := r.Handle(context.Background(), "123", "/price")
	if !strings.Contains(got, "not available") {
		t.Errorf("expected an unavailable message, got %q", got)
	}
}

func TestHandlePrice_ReturnsLatest(t *testing.T) {
	st := memory.New()
	st.AppendSample(context.Background(), models.Sample{
		Ts: time.Now(), Symbol: ticker.Symbol, Last: decimal.NewFromFloat(0.98123),
	})
	r := New(st)

	got := r.Handle(context.Background(), "123", "/price")
	if !strings.Contains(got, "0.98123") {
		t.Errorf("expected formatted price in reply, got %q", got)
	}
}

func TestHandleSetCapitalAndPortfolio_RoundTrip(t *testing.T) {
	st := memory.New()
	r := New(st)
	ctx := context.Background()

	reply := r.Handle(ctx, "42", "/setcapital 500")
	if !strings.Contains(reply, "500.00") {
		t.Errorf("expected confirmation with amount, got %q", reply)
	}

	reply = r.Handle(ctx, "42", "/portfolio")
	if !strings.Contains(reply, "flat") || !strings.Contains(reply, "500.00") {
		t.Errorf("expected flat portfolio with capital 500, got %q", reply)
	}
}

func TestHandleSetAlertAndViewAlert_RoundTrip(t *testing.T) {
	st := memory.New()
	r := New(st)
	ctx := context.Background()

	r.Handle(ctx, "42", "/setalert 1.25")
	reply := r.Handle(ctx, "42", "/viewalert")
	if !strings.Contains(reply, "1.25000") {
		t.Errorf("expected alert price in reply, got %q", reply)
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	r := New(memory.New())
	reply := r.Handle(context.Background(), "42", "/nope")
	if !strings.Contains(reply, "Unknown command") {
		t.Errorf("expected unknown-command reply, got %q", reply)
	}
}
