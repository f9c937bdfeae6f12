package ticker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFetch_ValidPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"last": "0.9800", "open": "1.0000", "high": "1.0100", "low": "0.9700",
			"vwap": "1.0000", "volume": "1234.5", "bid": "0.9799", "ask": "0.9801",
			"open_24": "1.0050", "percent_change_24": "-2.50", "timestamp": "1700000000"
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	sample, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sample.Last.Equal(decimal.RequireFromString("0.9800")) {
		t.Errorf("expected last=0.9800, got %s", sample.Last)
	}
	if sample.Symbol != Symbol {
		t.Errorf("expected symbol %s, got %s", Symbol, sample.Symbol)
	}
	if sample.PctChange != nil {
		t.Errorf("expected nil PctChange from the client, got %v", sample.PctChange)
	}
}

func TestFetch_NonPositiveLast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"last": "0", "vwap": "1.0"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Fetch(context.Background())
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestFetch_MissingRequiredField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"open": "1.0"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Fetch(context.Background())
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestFetch_Non2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Fetch(context.Background())
	if !errors.Is(err, ErrNetworkFail) {
		t.Fatalf("expected ErrNetworkFail, got %v", err)
	}
}

func TestFetch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Fetch(context.Background())
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}
