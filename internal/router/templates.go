package router

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"signalbot/internal/models"
)

const hashtagFooter = "#XRP #crypto #trading"

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format("2006-01-02 15:04:05")
}

func formatTrade(ev models.Event) string {
	switch ev.Kind {
	case models.TradeBuy:
		return fmt.Sprintf("🟢 BUY XRP/USD @ $%s\nfee: $%s | capital: $%s\n%s UTC\n%s",
			ev.Price.StringFixed(5), ev.Fee.StringFixed(2), ev.UpdatedCapital.StringFixed(2),
			formatTimestamp(ev.Ts), hashtagFooter)
	case models.TradeSell:
		arrow := "📈"
		if ev.Pnl.IsNegative() {
			arrow = "📉"
		}
		return fmt.Sprintf("%s SELL XRP/USD @ $%s\npnl: $%s (%s%%) | held: %s | capital: $%s\n%s UTC\n%s",
			arrow, ev.Price.StringFixed(5), ev.Pnl.StringFixed(2),
			ev.PctChange.Mul(decimal.NewFromInt(100)).StringFixed(2),
			ev.TimeHeld.Round(time.Second), ev.UpdatedCapital.StringFixed(2),
			formatTimestamp(ev.Ts), hashtagFooter)
	default:
		return ""
	}
}

func formatHourlyUpdate(now time.Time, price, prevPostedPrice decimal.Decimal, hasPrev bool) string {
	if !hasPrev || prevPostedPrice.IsZero() {
		return fmt.Sprintf("⏱ XRP/USD hourly update: $%s\n%s UTC\n%s",
			price.StringFixed(5), formatTimestamp(now), hashtagFooter)
	}

	roundedPrice := price.Round(2)
	roundedPrev := prevPostedPrice.Round(2)
	pct := roundedPrice.Sub(roundedPrev).Div(roundedPrev).Mul(decimal.NewFromInt(100))
	arrow := "➡️"
	if pct.IsPositive() {
		arrow = "⬆️"
	} else if pct.IsNegative() {
		arrow = "⬇️"
	}
	return fmt.Sprintf("%s XRP/USD hourly update: $%s (%s%%)\n%s UTC\n%s",
		arrow, price.StringFixed(5), pct.StringFixed(2), formatTimestamp(now), hashtagFooter)
}

func formatNHourSummary(now time.Time, price, support, resistance, pctChange decimal.Decimal, chartPath string) string {
	chartNote := ""
	if chartPath != "" {
		chartNote = " (chart attached)"
	}
	return fmt.Sprintf("📊 XRP/USD 3h summary%s\nprice: $%s | support: $%s | resistance: $%s | change: %s%%\n%s UTC\n%s",
		chartNote, price.StringFixed(5), support.StringFixed(5), resistance.StringFixed(5),
		pctChange.Mul(decimal.NewFromInt(100)).StringFixed(2), formatTimestamp(now), hashtagFooter)
}

func formatDailySummary(now time.Time, price, pctChange decimal.Decimal) string {
	return fmt.Sprintf("📅 XRP/USD daily summary\nprice: $%s | change: %s%%\n%s UTC\n%s",
		price.StringFixed(5), pctChange.Mul(decimal.NewFromInt(100)).StringFixed(2),
		formatTimestamp(now), hashtagFooter)
}

func formatVolatilityAlert(now time.Time, price, pctChange decimal.Decimal) string {
	return fmt.Sprintf("⚠️ XRP/USD volatility alert: %s%% move\nprice: $%s\n%s UTC\n%s",
		pctChange.Mul(decimal.NewFromInt(100)).StringFixed(2), price.StringFixed(5),
		formatTimestamp(now), hashtagFooter)
}
