// Package ticker fetches a single price snapshot from the configured spot
// ticker endpoint and normalizes it into a models.Sample.
package ticker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"signalbot/internal/models"
)

const fetchTimeout = 10 * time.Second

// Symbol is the asset this client is configured for.
const Symbol = "XRPUSD"

// Client fetches ticker snapshots over HTTP. It does not retry; the
// Ingestor owns retry policy.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// New builds a Client against the given endpoint.
func New(url string) *Client {
	return &Client{
		URL:        url,
		HTTPClient: &http.Client{Timeout: fetchTimeout},
	}
}

// rawTicker mirrors Bitstamp's ticker response. Every numeric field is
// transmitted as a JSON string.
type rawTicker struct {
	Last            string `json:"last"`
	Open            string `json:"open"`
	High            string `json:"high"`
	Low             string `json:"low"`
	Vwap            string `json:"vwap"`
	Volume          string `json:"volume"`
	Bid             string `json:"bid"`
	Ask             string `json:"ask"`
	Open24          string `json:"open_24"`
	PercentChange24 string `json:"percent_change_24"`
	Timestamp       string `json:"timestamp"`
}

// Fetch retrieves and validates one ticker snapshot. The returned Sample
// has Ts set to the exchange-reported timestamp, or to the local receive
// time when the payload carries no parseable timestamp; PctChange is always nil
// (it is computed by the Ingestor against the prior stored sample).
func (c *Client) Fetch(ctx context.Context) (models.Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return models.Sample{}, fmt.Errorf("ticker: %w: %v", ErrNetworkFail, err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return models.Sample{}, fmt.Errorf("ticker: %w: %v", ErrNetworkFail, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Sample{}, fmt.Errorf("ticker: %w: status %d", ErrNetworkFail, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Sample{}, fmt.Errorf("ticker: %w: %v", ErrNetworkFail, err)
	}

	var raw rawTicker
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.Sample{}, fmt.Errorf("ticker: %w: %v", ErrMalformedPayload, err)
	}

	return normalize(raw)
}

func normalize(raw rawTicker) (models.Sample, error) {
	last, err := parsePositiveDecimal(raw.Last)
	if err != nil {
		return models.Sample{}, fmt.Errorf("ticker: %w: last=%q: %v", ErrMalformedPayload, raw.Last, err)
	}

	vwap, err := parsePositiveDecimal(raw.Vwap)
	if err != nil {
		return models.Sample{}, fmt.Errorf("ticker: %w: vwap=%q: %v", ErrMalformedPayload, raw.Vwap, err)
	}

	open, _ := decimal.NewFromString(raw.Open)
	high, _ := decimal.NewFromString(raw.High)
	low, _ := decimal.NewFromString(raw.Low)
	volume, _ := decimal.NewFromString(raw.Volume)
	bid, _ := decimal.NewFromString(raw.Bid)
	ask, _ := decimal.NewFromString(raw.Ask)
	pctChange24, _ := decimal.NewFromString(raw.PercentChange24)

	ts := time.Now().UTC()
	if raw.Timestamp != "" {
		if unixSec, err := decimal.NewFromString(raw.Timestamp); err == nil {
			ts = time.Unix(unixSec.IntPart(), 0).UTC()
		}
	}

	return models.Sample{
		Ts:           ts,
		Symbol:       Symbol,
		Last:         last,
		Open:         open,
		High:         high,
		Low:          low,
		Vwap:         vwap,
		Volume:       volume,
		Bid:          bid,
		Ask:          ask,
		PctChange24h: pctChange24,
	}, nil
}

func parsePositiveDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty field")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("non-positive value %s", d.String())
	}
	return d, nil
}
