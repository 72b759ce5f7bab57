package service

import (
	"context"
	"sort"
	"time"

	"triarb/internal/models"
	"triarb/internal/repository"
)

// ============ Mock TradeRepository ============

type MockTradeRepository struct {
	trades    map[string]*models.Trade
	getErr    error
	countErr  error
	deleteErr error
}

func NewMockTradeRepository() *MockTradeRepository {
	return &MockTradeRepository{trades: make(map[string]*models.Trade)}
}

func (m *MockTradeRepository) Create(trade *models.Trade) error {
	m.trades[trade.TradeID] = trade
	return nil
}

func (m *MockTradeRepository) GetByID(tradeID string) (*models.Trade, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	trade, ok := m.trades[tradeID]
	if !ok {
		return nil, repository.ErrTradeNotFound
	}
	return trade, nil
}

func (m *MockTradeRepository) sorted() []*models.Trade {
	out := make([]*models.Trade, 0, len(m.trades))
	for _, t := range m.trades {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

func (m *MockTradeRepository) GetRecent(limit int) ([]*models.Trade, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := m.sorted()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockTradeRepository) GetByStatus(status string, limit int) ([]*models.Trade, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []*models.Trade
	for _, t := range m.sorted() {
		if t.Status == status && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockTradeRepository) GetInTimeRange(from, to time.Time, status string, limit int) ([]*models.Trade, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []*models.Trade
	for _, t := range m.sorted() {
		if t.StartedAt.Before(from) || t.StartedAt.After(to) {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		if len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockTradeRepository) GetPartials() ([]*models.Trade, error) {
	return m.GetByStatus(models.TradeStatusPartial, maxTradeLimit)
}

func (m *MockTradeRepository) Update(trade *models.Trade) error {
	if _, ok := m.trades[trade.TradeID]; !ok {
		return repository.ErrTradeNotFound
	}
	m.trades[trade.TradeID] = trade
	return nil
}

func (m *MockTradeRepository) CountByStatus(status string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, t := range m.trades {
		if t.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MockTradeRepository) Count() (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.trades), nil
}

func (m *MockTradeRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var deleted int64
	for id, t := range m.trades {
		if t.StartedAt.Before(timestamp) && t.Status != models.TradeStatusPartial {
			delete(m.trades, id)
			deleted++
		}
	}
	return deleted, nil
}

// ============ Mock ConfigRepository ============

type MockConfigRepository struct {
	cfg       *models.TradingConfig
	getErr    error
	updateErr error
}

func NewMockConfigRepository() *MockConfigRepository {
	return &MockConfigRepository{cfg: repository.DefaultTradingConfig()}
}

func (m *MockConfigRepository) Get() (*models.TradingConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	cp := *m.cfg
	return &cp, nil
}

func (m *MockConfigRepository) Update(cfg *models.TradingConfig) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *cfg
	m.cfg = &cp
	return nil
}

func (m *MockConfigRepository) SetEnabled(enabled bool) error {
	m.cfg.IsEnabled = enabled
	return nil
}

// ============ Mock StateRepository ============

type MockStateRepository struct {
	state  *models.TradingState
	getErr error
}

func NewMockStateRepository() *MockStateRepository {
	return &MockStateRepository{state: &models.TradingState{ID: 1, LastDailyReset: time.Now().UTC()}}
}

func (m *MockStateRepository) Get() (*models.TradingState, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	cp := *m.state
	return &cp, nil
}

func (m *MockStateRepository) UpdateAtomic(ctx context.Context, fn func(*models.TradingState) error) (*models.TradingState, error) {
	cp := *m.state
	if err := fn(&cp); err != nil {
		return nil, err
	}
	m.state = &cp
	out := cp
	return &out, nil
}

// ============ Mock OpportunityRepository ============

type MockOpportunityRepository struct {
	opps      map[string]*models.Opportunity
	createErr error
	getErr    error
}

func NewMockOpportunityRepository() *MockOpportunityRepository {
	return &MockOpportunityRepository{opps: make(map[string]*models.Opportunity)}
}

func (m *MockOpportunityRepository) Create(opp *models.Opportunity) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.opps[opp.OpportunityID] = opp
	return nil
}

func (m *MockOpportunityRepository) GetByID(opportunityID string) (*models.Opportunity, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	opp, ok := m.opps[opportunityID]
	if !ok {
		return nil, repository.ErrOpportunityNotFound
	}
	return opp, nil
}

func (m *MockOpportunityRepository) GetRecent(limit int) ([]*models.Opportunity, error) {
	out := make([]*models.Opportunity, 0, len(m.opps))
	for _, o := range m.opps {
		if len(out) < limit {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockOpportunityRepository) CountByStatus(status string) (int, error) {
	n := 0
	for _, o := range m.opps {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MockOpportunityRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	var deleted int64
	for id, o := range m.opps {
		if o.FoundAt.Before(timestamp) {
			delete(m.opps, id)
			deleted++
		}
	}
	return deleted, nil
}

// ============ Mock FeeRepository ============

type MockFeeRepository struct {
	fees      *models.FeeParameters
	updateErr error
}

func NewMockFeeRepository() *MockFeeRepository {
	return &MockFeeRepository{fees: &models.FeeParameters{ID: 1, FeeSource: models.FeeSourcePending}}
}

func (m *MockFeeRepository) Get() (*models.FeeParameters, error) {
	cp := *m.fees
	return &cp, nil
}

func (m *MockFeeRepository) Update(fees *models.FeeParameters) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	now := time.Now().UTC()
	cp := *fees
	cp.LastFetchedAt = &now
	m.fees = &cp
	return nil
}

// ============ Mock Engine ============

type MockEngine struct {
	handled   []*models.Opportunity
	handleErr error
	markAs    string
	oppRepo   *MockOpportunityRepository
}

func (m *MockEngine) HandleOpportunity(ctx context.Context, opp *models.Opportunity) (*models.Trade, error) {
	if m.handleErr != nil {
		return nil, m.handleErr
	}
	m.handled = append(m.handled, opp)
	if m.markAs != "" && m.oppRepo != nil {
		if stored, ok := m.oppRepo.opps[opp.OpportunityID]; ok {
			stored.Status = m.markAs
		}
	}
	return nil, nil
}
