// Package memory is an in-process Store backed by mutex-guarded maps. It
// serves as the test backend, standing in for the ad-hoc file-based state
// the original implementation kept in scattered JSON files. The service
// binary itself always runs on the postgres Store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"signalbot/internal/errs"
	"signalbot/internal/models"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.Mutex

	samplesBySymbol map[string][]models.Sample
	botState        *models.BotState
	tradeSignals    []models.TradeSignal
	activity        []models.BotActivity
	portfolios      map[string]models.Portfolio
	alerts          map[string]models.PriceAlert
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		samplesBySymbol: make(map[string][]models.Sample),
		portfolios:      make(map[string]models.Portfolio),
		alerts:          make(map[string]models.PriceAlert),
	}
}

func (s *Store) AppendSample(_ context.Context, sample models.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samplesBySymbol[sample.Symbol] = append(s.samplesBySymbol[sample.Symbol], sample)
	return nil
}

func (s *Store) LatestSample(_ context.Context, symbol string) (models.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.samplesBySymbol[symbol]
	if len(list) == 0 {
		return models.Sample{}, errs.ErrNotFound
	}
	return list[len(list)-1], nil
}

func (s *Store) SamplesSince(_ context.Context, symbol string, t0 time.Time) ([]models.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.samplesBySymbol[symbol]
	out := make([]models.Sample, 0, len(list))
	for _, sample := range list {
		if !sample.Ts.Before(t0) {
			out = append(out, sample)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ts.Before(out[j].Ts) })
	return out, nil
}

func (s *Store) SaveBotState(_ context.Context, state models.BotState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := state
	s.botState = &cp
	return nil
}

func (s *Store) LoadBotState(_ context.Context) (models.BotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.botState == nil {
		return models.BotState{}, errs.ErrNotFound
	}
	return *s.botState, nil
}

func (s *Store) AppendTradeSignal(_ context.Context, t models.TradeSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tradeSignals = append(s.tradeSignals, t)
	return nil
}

func (s *Store) LatestTradeSignal(_ context.Context) (models.TradeSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tradeSignals) == 0 {
		return models.TradeSignal{}, errs.ErrNotFound
	}
	return s.tradeSignals[len(s.tradeSignals)-1], nil
}

func (s *Store) AppendActivity(_ context.Context, a models.BotActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, a)
	return nil
}

func (s *Store) LatestActivity(_ context.Context, kind models.ActivityKind) (models.BotActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.activity) - 1; i >= 0; i-- {
		if s.activity[i].Kind == kind {
			return s.activity[i], nil
		}
	}
	return models.BotActivity{}, errs.ErrNotFound
}

func (s *Store) GetPortfolio(_ context.Context, chatID string) (models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.portfolios[chatID]
	if !ok {
		return models.Portfolio{}, errs.ErrNotFound
	}
	return p, nil
}

func (s *Store) PutPortfolio(_ context.Context, chatID string, p models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios[chatID] = p
	return nil
}

func (s *Store) GetAlert(_ context.Context, chatID string) (models.PriceAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[chatID]
	if !ok {
		return models.PriceAlert{}, errs.ErrNotFound
	}
	return a, nil
}

func (s *Store) PutAlert(_ context.Context, chatID string, a models.PriceAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[chatID] = a
	return nil
}

func (s *Store) Close() {}
