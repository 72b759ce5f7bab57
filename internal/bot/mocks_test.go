package bot

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"triarb/internal/models"
	"triarb/internal/repository"
)

// mocks_test.go - in-memory реализации хранилищ и фейковый executor
//
// Моки повторяют семантику реальных репозиториев: UpdateAtomic
// сериализует мутации мьютексом и откатывает изменения при ошибке fn,
// как это делает транзакция с SELECT ... FOR UPDATE.

// ============================================================
// mockTradeStore
// ============================================================

type mockTradeStore struct {
	mu        sync.Mutex
	trades    map[string]*models.Trade
	createErr error
	updateErr error
}

func newMockTradeStore() *mockTradeStore {
	return &mockTradeStore{trades: make(map[string]*models.Trade)}
}

func cloneTrade(t *models.Trade) *models.Trade {
	cp := *t
	cp.Path = append([]string(nil), t.Path...)
	cp.LegFills = append([]models.LegFill(nil), t.LegFills...)
	return &cp
}

func (m *mockTradeStore) Create(trade *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.trades[trade.TradeID] = cloneTrade(trade)
	return nil
}

func (m *mockTradeStore) GetByID(tradeID string) (*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trade, ok := m.trades[tradeID]
	if !ok {
		return nil, repository.ErrTradeNotFound
	}
	return cloneTrade(trade), nil
}

func (m *mockTradeStore) Update(trade *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.trades[trade.TradeID]; !ok {
		return repository.ErrTradeNotFound
	}
	m.trades[trade.TradeID] = cloneTrade(trade)
	return nil
}

func (m *mockTradeStore) SetResolution(tradeID string, resolvedAt time.Time, resolvedAmountUSD float64, resolutionTradeID string, profitLoss, profitLossPct float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trade, ok := m.trades[tradeID]
	if !ok || trade.Status != models.TradeStatusPartial {
		return repository.ErrTradeNotFound
	}
	trade.Status = models.TradeStatusResolved
	trade.ResolvedAt = &resolvedAt
	trade.ResolvedAmountUSD = &resolvedAmountUSD
	trade.ResolutionTradeID = resolutionTradeID
	trade.ProfitLoss = &profitLoss
	trade.ProfitLossPct = &profitLossPct
	return nil
}

func (m *mockTradeStore) GetPartials() ([]*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Trade
	for _, t := range m.trades {
		if t.Status == models.TradeStatusPartial {
			out = append(out, cloneTrade(t))
		}
	}
	return out, nil
}

func (m *mockTradeStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trades)
}

// ============================================================
// mockStateStore
// ============================================================

type mockStateStore struct {
	mu    sync.Mutex
	state models.TradingState
}

func newMockStateStore() *mockStateStore {
	return &mockStateStore{state: models.TradingState{ID: 1, LastDailyReset: time.Now().UTC()}}
}

func (m *mockStateStore) Get() (*models.TradingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.state
	return &cp, nil
}

func (m *mockStateStore) UpdateAtomic(ctx context.Context, fn func(*models.TradingState) error) (*models.TradingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Мутация на копии: ошибка fn — откат, как в транзакции
	cp := m.state
	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now().UTC()
	m.state = cp
	out := cp
	return &out, nil
}

func (m *mockStateStore) ResetDailyIfBefore(ctx context.Context, dayStart, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.LastDailyReset.Before(dayStart) {
		return false, nil
	}
	m.state.DailyLoss = 0
	m.state.DailyProfit = 0
	m.state.DailyTrades = 0
	m.state.DailyWins = 0
	m.state.LastDailyReset = now
	return true, nil
}

func (m *mockStateStore) snapshot() models.TradingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ============================================================
// mockConfigStore
// ============================================================

type mockConfigStore struct {
	mu  sync.Mutex
	cfg models.TradingConfig
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{cfg: models.TradingConfig{
		ID:                 1,
		IsEnabled:          true,
		TradeAmount:        10.0,
		MinProfitThreshold: 0.002,
		MaxDailyLoss:       30.0,
		MaxTotalLoss:       100.0,
		ExecutionMode:      models.ExecutionModeSequential,
		MaxParallelTrades:  3,
		MaxRetriesPerLeg:   2,
		OrderTimeoutSec:    10,
		StartCurrencyMode:  models.StartCurrencyAll,
	}}
}

func (m *mockConfigStore) Get() (*models.TradingConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.cfg
	cp.StartCurrencies = append([]string(nil), m.cfg.StartCurrencies...)
	return &cp, nil
}

func (m *mockConfigStore) SetEnabled(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.IsEnabled = enabled
	return nil
}

// ============================================================
// mockOpportunityStore
// ============================================================

type statusCall struct {
	opportunityID string
	status        string
	reason        string
	tradeID       string
}

type mockOpportunityStore struct {
	mu    sync.Mutex
	calls []statusCall
}

func newMockOpportunityStore() *mockOpportunityStore {
	return &mockOpportunityStore{}
}

func (m *mockOpportunityStore) UpdateStatus(opportunityID, status, reason, tradeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, statusCall{opportunityID, status, reason, tradeID})
	return nil
}

func (m *mockOpportunityStore) lastCall() (statusCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return statusCall{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// ============================================================
// mockFeeStore
// ============================================================

type mockFeeStore struct {
	fees models.FeeParameters
}

func newMockFeeStore() *mockFeeStore {
	fetched := time.Now().UTC()
	return &mockFeeStore{fees: models.FeeParameters{
		ID:            1,
		MakerFee:      0.001,
		TakerFee:      0.001,
		FeeSource:     models.FeeSourceExchangeAPI,
		LastFetchedAt: &fetched,
	}}
}

func (m *mockFeeStore) Get() (*models.FeeParameters, error) {
	cp := m.fees
	return &cp, nil
}

// ============================================================
// fakeExecutor
// ============================================================

type fakeExecutor struct {
	mu       sync.Mutex
	placed   []OrderRequest
	placeErr error
	results  chan LegResult

	rates   map[string]float64 // "BTC/USDT" → rate
	rateErr error

	sells      []MarketSellRequest
	sellResult *SellResult
	sellErr    error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		results: make(chan LegResult, 16),
		rates:   make(map[string]float64),
	}
}

func (f *fakeExecutor) PlaceOrder(ctx context.Context, req OrderRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return f.placeErr
	}
	f.placed = append(f.placed, req)
	return nil
}

func (f *fakeExecutor) MarketSell(ctx context.Context, req MarketSellRequest) (*SellResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sells = append(f.sells, req)
	if f.sellErr != nil {
		return nil, f.sellErr
	}
	return f.sellResult, nil
}

func (f *fakeExecutor) GetRate(ctx context.Context, from, to string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rateErr != nil {
		return 0, f.rateErr
	}
	rate, ok := f.rates[from+"/"+to]
	if !ok {
		return 1.0, nil
	}
	return rate, nil
}

func (f *fakeExecutor) Results() <-chan LegResult {
	return f.results
}

func (f *fakeExecutor) placedOrders() []OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]OrderRequest(nil), f.placed...)
}

// ============================================================
// fakeHub
// ============================================================

type fakeHub struct {
	mu            sync.Mutex
	tradeUpdates  int
	stateUpdates  int
	breakerEvents int
}

func newFakeHub() *fakeHub {
	return &fakeHub{}
}

func (h *fakeHub) BroadcastTradeUpdate(trade *models.Trade) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tradeUpdates++
}

func (h *fakeHub) BroadcastStateUpdate(state *models.TradingState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stateUpdates++
}

func (h *fakeHub) BroadcastCircuitBreaker(state *models.TradingState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.breakerEvents++
}

func (h *fakeHub) breakerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.breakerEvents
}

// testMetrics создает метрики на изолированном реестре, чтобы тесты
// не конфликтовали с реестром по умолчанию
func testMetrics() *Metrics {
	return newMetricsWith(prometheus.NewRegistry())
}
