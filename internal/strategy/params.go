package strategy

import "github.com/shopspring/decimal"

// Params are the Strategy Engine's tunable thresholds.
type Params struct {
	OversoldThreshold decimal.Decimal // buy when (last-vwap)/vwap <= this
	TakeProfitPct     decimal.Decimal // exit when last >= entry*(1+this)
	StopLossPct       decimal.Decimal // exit when last <= entry*(1+this)
	TrailPct          decimal.Decimal // trailing distance below highest-since-entry
	LossCooldown      durationMinutes // minimum gap after a losing exit before next buy
	FeePct            decimal.Decimal // applied both sides
	InitialCapital    decimal.Decimal // starting capital on a true cold start
}

type durationMinutes = int

// DefaultParams mirrors the service's documented default thresholds.
func DefaultParams() Params {
	return Params{
		OversoldThreshold: decimal.NewFromFloat(-0.019),
		TakeProfitPct:     decimal.NewFromFloat(0.015),
		StopLossPct:       decimal.NewFromFloat(-0.02),
		TrailPct:          decimal.NewFromFloat(0.005),
		LossCooldown:      30,
		FeePct:            decimal.NewFromFloat(0.005),
		InitialCapital:    decimal.NewFromInt(1000),
	}
}
