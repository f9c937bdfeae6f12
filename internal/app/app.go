// Package app wires every component into one running service: it builds
// the Store, Ticker Client, Strategy Engine, Event Router, Publishers, and
// Query Registry, then runs each long-lived worker until a cancellation
// signal arrives.
package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"signalbot/internal/chart"
	"signalbot/internal/clock"
	"signalbot/internal/config"
	"signalbot/internal/ingest"
	"signalbot/internal/lock"
	"signalbot/internal/metrics"
	"signalbot/internal/publish/chat"
	"signalbot/internal/publish/microblog"
	"signalbot/internal/query"
	"signalbot/internal/ratelimit"
	"signalbot/internal/router"
	"signalbot/internal/store"
	"signalbot/internal/store/postgres"
	"signalbot/internal/strategy"
	"signalbot/internal/ticker"
)

const lockKey = "trading_bot.lock"
const lockTTL = 30 * time.Second
const lockRefreshPeriod = 10 * time.Second
const engineLoopPeriod = 5 * time.Second
const routerLoopPeriod = time.Minute
const chartCleanupPeriod = 24 * time.Hour

// App owns every long-lived component and drives their lifecycles.
type App struct {
	cfg *config.Config
	st  store.Store

	ticker   *ticker.Client
	ingestor *ingest.Ingestor
	engine   *strategy.Engine
	router   *router.Router
	queries  *query.Registry
	chat     *chat.Client

	lockMgr *lock.Manager
}

// New constructs an App from cfg, wiring a Postgres store, Redis-backed
// lock and rate limiter, and every worker. The caller must call Run.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{DSN: cfg.PostgresDSN})
	if err != nil {
		return nil, err
	}
	if err := pgClient.RunMigrations(ctx); err != nil {
		return nil, err
	}

	rdbOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(rdbOpts)

	tickerClient := ticker.New(cfg.TickerURL)

	var st store.Store = pgClient
	ing := ingest.New(tickerClient, st, ticker.Symbol, clock.Real{})

	params := strategy.Params{
		OversoldThreshold: decimal.NewFromFloat(cfg.OversoldThreshold),
		TakeProfitPct:     decimal.NewFromFloat(cfg.TakeProfitPct),
		StopLossPct:       decimal.NewFromFloat(cfg.StopLossPct),
		TrailPct:          decimal.NewFromFloat(cfg.TrailPct),
		LossCooldown:      cfg.LossCooldownMin,
		FeePct:            decimal.NewFromFloat(cfg.FeePct),
		InitialCapital:    decimal.NewFromFloat(cfg.InitialCapital),
	}
	engine := strategy.New(st, params)

	chatClient := chat.New(cfg.ChatBotToken, cfg.ChatChatID)
	microblogClient := microblog.New(cfg.MicroblogAPIKey, cfg.MicroblogAPISec)
	limiter := ratelimit.New(rdb)

	flags := router.Flags{
		HourlyTweet:     cfg.EnableHourlyTweet,
		NHourSummary:    cfg.EnableNHourSummary,
		VolatilityAlert: cfg.EnableVolatilityAlert,
		DailySummary:    cfg.EnableDailySummary,
	}
	rt := router.New(st, microblogClient, chatClient, limiter, cfg.ChartOutputDir, ticker.Symbol, flags)

	queries := query.New(st)

	return &App{
		cfg:      cfg,
		st:       st,
		ticker:   tickerClient,
		ingestor: ing,
		engine:   engine,
		router:   rt,
		queries:  queries,
		chat:     chatClient,
		lockMgr:  lock.NewManager(rdb),
	}, nil
}

// Run blocks until a termination signal is received (or ctx is cancelled),
// at which point it cancels every worker and closes the Store. It does not
// wait for the worker goroutines to return.
func (a *App) Run(ctx context.Context) error {
	release, err := a.lockMgr.Acquire(ctx, lockKey, lockTTL)
	if err != nil {
		return err
	}
	defer release()

	if err := a.engine.ColdStart(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("app: shutdown signal received, cancelling workers")
		cancel()
	}()

	go a.ingestor.Run(ctx)
	go a.engineLoop(ctx)
	go a.routerLoop(ctx)
	go a.chartCleanupLoop(ctx)
	go a.chat.Listen(ctx, a.handleCommand)
	go a.serveMetrics(ctx)
	go a.lockRefreshLoop(ctx)

	<-ctx.Done()
	a.st.Close()
	return nil
}

// lockRefreshLoop keeps the instance lock alive for the life of the
// process; the TTL is short enough that a crashed holder's lock expires
// quickly, so a live holder must renew well before it does.
func (a *App) lockRefreshLoop(ctx context.Context) {
	t := time.NewTicker(lockRefreshPeriod)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := a.lockMgr.Refresh(ctx, lockKey, lockTTL); err != nil {
				log.Printf("app: lock refresh failed: %v", err)
			}
		}
	}
}

func (a *App) handleCommand(chatID, line string) string {
	return a.queries.Handle(context.Background(), chatID, line)
}

// engineLoop feeds each newly ingested sample through the Strategy Engine
// and forwards any resulting trade events to the Router.
func (a *App) engineLoop(ctx context.Context) {
	t := time.NewTicker(engineLoopPeriod)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sample, err := a.st.LatestSample(ctx, ticker.Symbol)
			if err != nil {
				continue
			}
			events, err := a.engine.Process(ctx, sample)
			if err != nil {
				log.Printf("app: strategy process failed: %v", err)
				continue
			}
			for _, ev := range events {
				metrics.StrategyEvents.WithLabelValues(string(ev.Kind)).Inc()
				capitalFloat, _ := ev.UpdatedCapital.Float64()
				metrics.Capital.Set(capitalFloat)
				a.router.PublishTrade(ctx, ev)
			}
		}
	}
}

func (a *App) routerLoop(ctx context.Context) {
	t := time.NewTicker(routerLoopPeriod)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			a.router.Tick(ctx, now.UTC())
		}
	}
}

func (a *App) chartCleanupLoop(ctx context.Context) {
	chart.CleanupCharts(a.cfg.ChartOutputDir, a.cfg.ChartMaxAgeDays, time.Now())

	t := time.NewTicker(chartCleanupPeriod)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			chart.CleanupCharts(a.cfg.ChartOutputDir, a.cfg.ChartMaxAgeDays, now)
		}
	}
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("app: metrics server stopped: %v", err)
	}
}
