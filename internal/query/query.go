// Package query implements the chat command registry: a capability set
// mapping command name to handler, registered once at startup, reading
// only from Store and never touching the network beyond the chat
// transport it is invoked from.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"signalbot/internal/errs"
	"signalbot/internal/metrics"
	"signalbot/internal/models"
	"signalbot/internal/store"
	"signalbot/internal/ticker"
)

// Handler answers one command invocation for chatID with the remaining
// whitespace-separated args, returning the reply text.
type Handler func(ctx context.Context, chatID string, args []string) string

// Registry dispatches an inbound "/command arg1 arg2" line to its handler.
type Registry struct {
	st       store.Store
	handlers map[string]Handler
}

// New builds a Registry backed by st, with every supported chat command
// registered.
func New(st store.Store) *Registry {
	r := &Registry{st: st, handlers: make(map[string]Handler)}
	r.handlers["/start"] = r.handleStart
	r.handlers["/price"] = r.handlePrice
	r.handlers["/lastsignal"] = r.handleLastSignal
	r.handlers["/setcapital"] = r.handleSetCapital
	r.handlers["/portfolio"] = r.handlePortfolio
	r.handlers["/setalert"] = r.handleSetAlert
	r.handlers["/viewalert"] = r.handleViewAlert
	r.handlers["/capital"] = r.handleCapital
	r.handlers["/help"] = r.handleHelp
	r.handlers["/about"] = r.handleAbout
	return r
}

// Handle parses and dispatches one command line. Unknown commands get a
// generic reply rather than being silently dropped.
func (r *Registry) Handle(ctx context.Context, chatID, line string) string {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return ""
	}
	name, args := parts[0], parts[1:]

	h, ok := r.handlers[name]
	if !ok {
		return fmt.Sprintf("Unknown command %s. Send /help for the list of commands.", name)
	}
	metrics.QueryCommands.WithLabelValues(name).Inc()
	return h(ctx, chatID, args)
}

func (r *Registry) handleStart(ctx context.Context, chatID string, args []string) string {
	return "Welcome. This bot tracks XRP/USD and posts signals automatically. Send /help for commands."
}

func (r *Registry) handlePrice(ctx context.Context, chatID string, args []string) string {
	sample, err := r.st.LatestSample(ctx, ticker.Symbol)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "Price not available yet."
		}
		return "Price not available right now."
	}
	return fmt.Sprintf("XRP/USD: $%s", sample.Last.StringFixed(5))
}

func (r *Registry) handleLastSignal(ctx context.Context, chatID string, args []string) string {
	trade, err := r.st.LatestTradeSignal(ctx)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "No trade signal has been recorded yet."
		}
		return "Could not load the last signal."
	}
	if trade.Kind == models.TradeBuy {
		return fmt.Sprintf("Last signal: BUY @ $%s, capital now $%s",
			trade.Price.StringFixed(5), trade.UpdatedCapital.StringFixed(2))
	}
	pnl := "n/a"
	if trade.Pnl != nil {
		pnl = trade.Pnl.StringFixed(2)
	}
	return fmt.Sprintf("Last signal: SELL @ $%s, pnl $%s, capital now $%s",
		trade.Price.StringFixed(5), pnl, trade.UpdatedCapital.StringFixed(2))
}

func (r *Registry) handleSetCapital(ctx context.Context, chatID string, args []string) string {
	if len(args) != 1 {
		return "Usage: /setcapital <amount>"
	}
	amount, err := decimal.NewFromString(args[0])
	if err != nil || !amount.IsPositive() {
		return "Amount must be a positive number."
	}

	p, err := r.st.GetPortfolio(ctx, chatID)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return "Could not load your portfolio."
	}
	p.Capital = amount
	if p.Position == "" {
		p.Position = models.PositionFlat
	}

	if err := r.st.PutPortfolio(ctx, chatID, p); err != nil {
		return "Could not save your portfolio."
	}
	return fmt.Sprintf("Portfolio capital set to $%s.", amount.StringFixed(2))
}

func (r *Registry) handlePortfolio(ctx context.Context, chatID string, args []string) string {
	p, err := r.st.GetPortfolio(ctx, chatID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "You have no portfolio yet. Use /setcapital <amount> to start one."
		}
		return "Could not load your portfolio."
	}

	if p.Position == models.PositionFlat {
		return fmt.Sprintf("Portfolio: flat, capital $%s, cumulative pnl $%s",
			p.Capital.StringFixed(2), p.CumulativePnl.StringFixed(2))
	}
	entry := "n/a"
	if p.EntryPrice != nil {
		entry = p.EntryPrice.StringFixed(5)
	}
	return fmt.Sprintf("Portfolio: long @ $%s, capital $%s, cumulative pnl $%s",
		entry, p.Capital.StringFixed(2), p.CumulativePnl.StringFixed(2))
}

func (r *Registry) handleSetAlert(ctx context.Context, chatID string, args []string) string {
	if len(args) != 1 {
		return "Usage: /setalert <price>"
	}
	target, err := decimal.NewFromString(args[0])
	if err != nil || !target.IsPositive() {
		return "Target price must be a positive number."
	}
	if err := r.st.PutAlert(ctx, chatID, models.PriceAlert{TargetPrice: target}); err != nil {
		return "Could not save your alert."
	}
	return fmt.Sprintf("Alert set at $%s.", target.StringFixed(5))
}

func (r *Registry) handleViewAlert(ctx context.Context, chatID string, args []string) string {
	a, err := r.st.GetAlert(ctx, chatID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "You have no alert set. Use /setalert <price>."
		}
		return "Could not load your alert."
	}
	return fmt.Sprintf("Your alert: $%s", a.TargetPrice.StringFixed(5))
}

func (r *Registry) handleCapital(ctx context.Context, chatID string, args []string) string {
	state, err := r.st.LoadBotState(ctx)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "No capital recorded yet."
		}
		return "Could not load current capital."
	}
	return fmt.Sprintf("Current capital: $%s", state.Capital.StringFixed(2))
}

func (r *Registry) handleHelp(ctx context.Context, chatID string, args []string) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	b.WriteString("/price - latest XRP/USD price\n")
	b.WriteString("/lastsignal - most recent trade signal\n")
	b.WriteString("/setcapital <amount> - set your portfolio capital\n")
	b.WriteString("/portfolio - your portfolio state\n")
	b.WriteString("/setalert <price> - set a price alert\n")
	b.WriteString("/viewalert - view your price alert\n")
	b.WriteString("/capital - current global capital\n")
	b.WriteString("/about - about this bot\n")
	return b.String()
}

func (r *Registry) handleAbout(ctx context.Context, chatID string, args []string) string {
	return "XRP/USD signal service: polls a public ticker, runs a rules-based strategy, and posts the results."
}
