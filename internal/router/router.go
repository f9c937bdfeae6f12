// Package router is the Event Router: it drives periodic scheduled
// publications (hourly update, N-hour summary, daily summary, volatility
// alert) off wall-clock and the sample stream, forwards trade events from
// the Strategy Engine, and deduplicates scheduled publications against the
// BotActivity ledger.
package router

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"signalbot/internal/chart"
	"signalbot/internal/errs"
	"signalbot/internal/metrics"
	"signalbot/internal/models"
	"signalbot/internal/store"
)

// nHourSummaryHours are the UTC hours the 3-hour summary fires on.
var nHourSummaryHours = map[int]bool{0: true, 3: true, 6: true, 9: true, 12: true, 15: true, 18: true, 21: true}

const volatilityCheckPeriod = 15 * time.Minute
const volatilityThresholdPct = 0.02
const dailySummaryHour = 20
const minuteCutoff = 5

// MicroblogPublisher is the subset of microblog.Client the Router depends on.
type MicroblogPublisher interface {
	Enabled() bool
	PostText(ctx context.Context, body string) error
	PostWithImage(ctx context.Context, body, imagePath string) error
}

// ChatSender is the subset of chat.Client the Router depends on.
type ChatSender interface {
	SendMessage(ctx context.Context, body string) error
}

// RateLimiter gates outbound microblog posts so the Router never exceeds
// the provider's own rate limit from our side.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

const microblogRateLimitKey = "microblog.post"
const microblogRateLimit = 50
const microblogRateWindow = time.Hour

// Flags gates which scheduled publications are active.
type Flags struct {
	HourlyTweet     bool
	NHourSummary    bool
	VolatilityAlert bool
	DailySummary    bool
}

// Router owns the scheduling and dedup logic for all non-trade
// publications, plus trade-event forwarding.
type Router struct {
	st        store.Store
	microblog MicroblogPublisher
	chat      ChatSender
	limiter   RateLimiter
	chartDir  string
	symbol    string
	flags     Flags

	lastVolatilityCheck time.Time
	lastVolatilityPrice decimal.Decimal
	haveVolatilityCheck bool

	lastHourlyPostedPrice decimal.Decimal
	haveHourlyPosted      bool
}

// New builds a Router.
func New(st store.Store, microblog MicroblogPublisher, chat ChatSender, limiter RateLimiter, chartDir, symbol string, flags Flags) *Router {
	return &Router{st: st, microblog: microblog, chat: chat, limiter: limiter, chartDir: chartDir, symbol: symbol, flags: flags}
}

// PublishTrade unconditionally forwards a BUY/SELL event to the chat
// publisher. The ledger row is already written by the Strategy Engine, so
// no additional persistence happens here.
func (r *Router) PublishTrade(ctx context.Context, ev models.Event) {
	body := formatTrade(ev)
	if body == "" {
		return
	}
	if err := r.chat.SendMessage(ctx, body); err != nil {
		metrics.RouterPublications.WithLabelValues(string(ev.Kind), "failed").Inc()
		return
	}
	metrics.RouterPublications.WithLabelValues(string(ev.Kind), "published").Inc()
}

// Tick evaluates every scheduled event against now and the current sample.
// It is meant to be called periodically (e.g. once a minute) from the
// Event Router's main loop.
func (r *Router) Tick(ctx context.Context, now time.Time) {
	sample, err := r.st.LatestSample(ctx, r.symbol)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			metrics.RouterPublications.WithLabelValues("scheduled", "failed").Inc()
		}
		return
	}

	now = now.UTC()

	if r.flags.HourlyTweet {
		r.tickHourlyUpdate(ctx, now, sample.Last)
	}
	if r.flags.NHourSummary {
		r.tickNHourSummary(ctx, now)
	}
	if r.flags.VolatilityAlert {
		r.tickVolatilityAlert(ctx, now, sample.Last)
	}
	if r.flags.DailySummary {
		r.tickDailySummary(ctx, now, sample.Last)
	}
}

func (r *Router) tickHourlyUpdate(ctx context.Context, now time.Time, price decimal.Decimal) {
	if now.Minute() >= minuteCutoff {
		return
	}
	if r.deduped(ctx, models.ActivityHourlyUpdate, now.Truncate(time.Hour)) {
		return
	}

	body := formatHourlyUpdate(now, price, r.lastHourlyPostedPrice, r.haveHourlyPosted)
	if !r.publishScheduled(ctx, models.ActivityHourlyUpdate, body, price, now) {
		return
	}
	r.lastHourlyPostedPrice = price.Round(2)
	r.haveHourlyPosted = true
}

func (r *Router) tickNHourSummary(ctx context.Context, now time.Time) {
	if !nHourSummaryHours[now.Hour()] || now.Minute() >= minuteCutoff {
		return
	}
	if r.deduped(ctx, models.ActivityNHourSummary, now.Truncate(time.Hour)) {
		return
	}

	since := now.Add(-3 * time.Hour)
	samples, err := r.st.SamplesSince(ctx, r.symbol, since)
	if err != nil || len(samples) == 0 {
		return
	}

	support, resistance := samples[0].Last, samples[0].Last
	for _, s := range samples {
		if s.Last.LessThan(support) {
			support = s.Last
		}
		if s.Last.GreaterThan(resistance) {
			resistance = s.Last
		}
	}
	first, last := samples[0].Last, samples[len(samples)-1].Last
	var pctChange decimal.Decimal
	if !first.IsZero() {
		pctChange = last.Sub(first).Div(first)
	}

	var chartPath string
	if path, err := chart.Render(samples, r.chartDir, now); err == nil {
		chartPath = path
		metrics.ChartRenders.WithLabelValues("success").Inc()
	} else {
		metrics.ChartRenders.WithLabelValues("failed").Inc()
	}

	body := formatNHourSummary(now, last, support, resistance, pctChange, chartPath)

	var publishErr error
	microblogTried := false
	if chartPath != "" && r.microblog.Enabled() && r.microblogAllowed(ctx) {
		microblogTried = true
		publishErr = r.microblog.PostWithImage(ctx, body, chartPath)
	}
	if !microblogTried || publishErr != nil {
		publishErr = r.chat.SendMessage(ctx, body)
	}

	if publishErr != nil {
		metrics.RouterPublications.WithLabelValues(string(models.ActivityNHourSummary), "failed").Inc()
		return
	}
	r.recordActivity(ctx, models.ActivityNHourSummary, last, body, now)
	metrics.RouterPublications.WithLabelValues(string(models.ActivityNHourSummary), "published").Inc()
}

func (r *Router) tickDailySummary(ctx context.Context, now time.Time, price decimal.Decimal) {
	if now.Hour() != dailySummaryHour || now.Minute() >= minuteCutoff {
		return
	}
	dayBucket := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if r.deduped(ctx, models.ActivityDailySummary, dayBucket) {
		return
	}

	since := now.Add(-24 * time.Hour)
	samples, err := r.st.SamplesSince(ctx, r.symbol, since)
	if err != nil || len(samples) == 0 {
		return
	}
	first := samples[0].Last
	var pctChange decimal.Decimal
	if !first.IsZero() {
		pctChange = price.Sub(first).Div(first)
	}

	body := formatDailySummary(now, price, pctChange)
	r.publishScheduled(ctx, models.ActivityDailySummary, body, price, now)
}

func (r *Router) tickVolatilityAlert(ctx context.Context, now time.Time, price decimal.Decimal) {
	if r.haveVolatilityCheck && now.Sub(r.lastVolatilityCheck) < volatilityCheckPeriod {
		return
	}

	prevPrice := r.lastVolatilityPrice
	hadPrev := r.haveVolatilityCheck
	r.lastVolatilityCheck = now
	r.lastVolatilityPrice = price
	r.haveVolatilityCheck = true

	if !hadPrev || prevPrice.IsZero() {
		return
	}

	pct := price.Sub(prevPrice).Div(prevPrice)
	if pct.Abs().LessThan(decimal.NewFromFloat(volatilityThresholdPct)) {
		return
	}

	body := formatVolatilityAlert(now, price, pct)
	r.publishScheduled(ctx, models.ActivityVolatilityAlert, body, price, now)
}

// microblogAllowed checks the shared rate limiter before a microblog post;
// a nil limiter (e.g. in tests) always allows.
func (r *Router) microblogAllowed(ctx context.Context) bool {
	if r.limiter == nil {
		return true
	}
	ok, err := r.limiter.Allow(ctx, microblogRateLimitKey, microblogRateLimit, microblogRateWindow)
	if err != nil {
		return true
	}
	return ok
}

// deduped reports whether kind already has an activity row in bucket.
func (r *Router) deduped(ctx context.Context, kind models.ActivityKind, bucketStart time.Time) bool {
	activity, err := r.st.LatestActivity(ctx, kind)
	if err != nil {
		return false
	}
	if activity.Ts.Before(bucketStart) {
		return false
	}
	metrics.RouterPublications.WithLabelValues(string(kind), "suppressed_dedupe").Inc()
	return true
}

func (r *Router) publishScheduled(ctx context.Context, kind models.ActivityKind, body string, price decimal.Decimal, now time.Time) bool {
	if err := r.chat.SendMessage(ctx, body); err != nil {
		metrics.RouterPublications.WithLabelValues(string(kind), "failed").Inc()
		return false
	}
	r.recordActivity(ctx, kind, price, body, now)
	metrics.RouterPublications.WithLabelValues(string(kind), "published").Inc()
	return true
}

func (r *Router) recordActivity(ctx context.Context, kind models.ActivityKind, price decimal.Decimal, body string, now time.Time) {
	if err := r.st.AppendActivity(ctx, models.BotActivity{
		Ts:          now,
		Kind:        kind,
		Price:       price,
		SummaryText: &body,
	}); err != nil {
		log.Printf("router: record activity: %v: %v", errs.ErrStoreWrite, err)
	}
}
