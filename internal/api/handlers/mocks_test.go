package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"triarb/internal/bot"
	"triarb/internal/models"
	"triarb/internal/repository"
	"triarb/internal/service"
)

// ErrMockDatabase имитирует инфраструктурную ошибку в тестах
var ErrMockDatabase = errors.New("mock database error")

// ============ Mock Config Service ============

// MockConfigService мок для ConfigServiceInterface
type MockConfigService struct {
	config    *models.TradingConfig
	getErr    error
	updateErr error
	mu        sync.RWMutex
}

// NewMockConfigService создает мок сервиса настроек
func NewMockConfigService() *MockConfigService {
	return &MockConfigService{
		config: &models.TradingConfig{
			ID:                 1,
			TradeAmount:        10,
			MinProfitThreshold: 0.002,
			MaxDailyLoss:       30,
			MaxTotalLoss:       100,
			ExecutionMode:      models.ExecutionModeSequential,
			MaxParallelTrades:  3,
			MaxRetriesPerLeg:   2,
			OrderTimeoutSec:    10,
			StartCurrencyMode:  models.StartCurrencyAll,
		},
	}
}

func (m *MockConfigService) GetConfig() (*models.TradingConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.config, nil
}

func (m *MockConfigService) UpdateConfig(req *service.UpdateConfigRequest) (*models.TradingConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if m.config.IsEnabled {
		return nil, service.ErrConfigLocked
	}
	if req.TradeAmount != nil {
		if *req.TradeAmount <= 0 {
			return nil, service.ErrInvalidTradeAmount
		}
		m.config.TradeAmount = *req.TradeAmount
	}
	if req.MinProfitThreshold != nil {
		m.config.MinProfitThreshold = *req.MinProfitThreshold
	}
	return m.config, nil
}

// ============ Mock State Service ============

// MockStateService мок для StateServiceInterface
type MockStateService struct {
	state     *models.TradingState
	status    *service.TradingStatus
	getErr    error
	statusErr error
	mu        sync.RWMutex
}

// NewMockStateService создает мок сервиса состояния
func NewMockStateService() *MockStateService {
	return &MockStateService{
		state: &models.TradingState{
			ID:          1,
			DailyTrades: 3,
			DailyWins:   2,
			TotalTrades: 10,
			TotalWins:   6,
		},
		status: &service.TradingStatus{
			IsEnabled:   true,
			Phase:       models.AdmissionIdle,
			DailyTrades: 3,
			TotalTrades: 10,
			WinRate:     0.6,
		},
	}
}

func (m *MockStateService) GetState() (*models.TradingState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.state, nil
}

func (m *MockStateService) GetStatus() (*service.TradingStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.status, nil
}

// ============ Mock Operator ============

// MockOperator мок для OperatorInterface. Записывает вызванные
// команды для проверки в тестах.
type MockOperator struct {
	state         *models.TradingState
	calls         []string
	err           error
	confirm       bool
	disableReason string
	mu            sync.Mutex
}

// NewMockOperator создает мок операторских команд
func NewMockOperator() *MockOperator {
	return &MockOperator{
		state: &models.TradingState{ID: 1},
	}
}

func (m *MockOperator) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *MockOperator) lastCall() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	return m.calls[len(m.calls)-1]
}

func (m *MockOperator) EnableTrading(ctx context.Context) error {
	m.record("enable")
	return m.err
}

func (m *MockOperator) DisableTrading(ctx context.Context, reason string) error {
	m.record("disable")
	m.mu.Lock()
	m.disableReason = reason
	m.mu.Unlock()
	return m.err
}

func (m *MockOperator) ResetBreaker(ctx context.Context) (*models.TradingState, error) {
	m.record("reset-breaker")
	if m.err != nil {
		return nil, m.err
	}
	return m.state, nil
}

func (m *MockOperator) ResetDaily(ctx context.Context) (*models.TradingState, error) {
	m.record("reset-daily")
	if m.err != nil {
		return nil, m.err
	}
	return m.state, nil
}

func (m *MockOperator) ResetAll(ctx context.Context, confirm bool) (*models.TradingState, error) {
	m.record("reset-all")
	m.mu.Lock()
	m.confirm = confirm
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if !confirm {
		return nil, bot.ErrConfirmationRequired
	}
	return m.state, nil
}

// ============ Mock Trade Service ============

// MockTradeService мок для TradeServiceInterface
type MockTradeService struct {
	trades  map[string]*models.Trade
	stats   *service.TradeStats
	listErr error
	getErr  error
	mu      sync.RWMutex
}

// NewMockTradeService создает мок сервиса сделок
func NewMockTradeService() *MockTradeService {
	return &MockTradeService{
		trades: make(map[string]*models.Trade),
		stats:  &service.TradeStats{},
	}
}

func (m *MockTradeService) addTrade(trade *models.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[trade.TradeID] = trade
}

func (m *MockTradeService) GetTrade(tradeID string) (*models.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	trade, ok := m.trades[tradeID]
	if !ok {
		return nil, repository.ErrTradeNotFound
	}
	return trade, nil
}

func (m *MockTradeService) GetRecentTrades(limit int) ([]*models.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]*models.Trade, 0, len(m.trades))
	for _, t := range m.trades {
		result = append(result, t)
	}
	return result, nil
}

func (m *MockTradeService) GetTradesByStatus(status string, limit int) ([]*models.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.Trade
	for _, t := range m.trades {
		if t.Status == status {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MockTradeService) GetTradesInRange(from, to time.Time, status string, limit int) ([]*models.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	if !to.After(from) {
		return nil, service.ErrInvalidTimeRange
	}
	var result []*models.Trade
	for _, t := range m.trades {
		if !t.StartedAt.Before(from) && t.StartedAt.Before(to) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MockTradeService) GetPartialTrades() ([]*models.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.Trade
	for _, t := range m.trades {
		if t.Status == models.TradeStatusPartial {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MockTradeService) GetTradeStats() (*service.TradeStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.stats, nil
}

func (m *MockTradeService) CleanupOldTrades(olderThanDays int) (int64, error) {
	if m.listErr != nil {
		return 0, m.listErr
	}
	return 0, nil
}

// ============ Mock Resolver ============

// MockResolver мок для ResolverInterface
type MockResolver struct {
	preview    *bot.ResolutionPreview
	resolved   *models.Trade
	previewErr error
	resolveErr error
}

// NewMockResolver создает мок резолвера
func NewMockResolver() *MockResolver {
	return &MockResolver{}
}

func (m *MockResolver) PreviewResolve(ctx context.Context, tradeID string) (*bot.ResolutionPreview, error) {
	if m.previewErr != nil {
		return nil, m.previewErr
	}
	if m.preview == nil {
		return nil, repository.ErrTradeNotFound
	}
	return m.preview, nil
}

func (m *MockResolver) Resolve(ctx context.Context, tradeID string) (*models.Trade, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	if m.resolved == nil {
		return nil, repository.ErrTradeNotFound
	}
	return m.resolved, nil
}

// ============ Mock Opportunity Service ============

// MockOpportunityService мок для OpportunityServiceInterface
type MockOpportunityService struct {
	opps      map[string]*models.Opportunity
	recordErr error
	getErr    error
	nextID    int
	mu        sync.RWMutex
}

// NewMockOpportunityService создает мок сервиса возможностей
func NewMockOpportunityService() *MockOpportunityService {
	return &MockOpportunityService{
		opps:   make(map[string]*models.Opportunity),
		nextID: 1,
	}
}

func (m *MockOpportunityService) RecordOpportunity(ctx context.Context, req *service.RecordOpportunityRequest) (*models.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	if len(req.Path) < 4 || req.Path[0] != req.Path[len(req.Path)-1] {
		return nil, service.ErrInvalidPath
	}
	if req.TradeAmount <= 0 {
		return nil, service.ErrInvalidAmount
	}
	opp := &models.Opportunity{
		OpportunityID:     string(rune('A' + m.nextID)),
		FoundAt:           time.Now(),
		Path:              req.Path,
		Legs:              len(req.Path) - 1,
		ExpectedProfitPct: req.ExpectedProfitPct,
		TradeAmount:       req.TradeAmount,
		Status:            models.OpportunityStatusExecuted,
	}
	m.nextID++
	m.opps[opp.OpportunityID] = opp
	return opp, nil
}

func (m *MockOpportunityService) GetOpportunity(opportunityID string) (*models.Opportunity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	opp, ok := m.opps[opportunityID]
	if !ok {
		return nil, repository.ErrOpportunityNotFound
	}
	return opp, nil
}

func (m *MockOpportunityService) GetRecentOpportunities(limit int) ([]*models.Opportunity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.Opportunity, 0, len(m.opps))
	for _, o := range m.opps {
		result = append(result, o)
	}
	return result, nil
}

func (m *MockOpportunityService) CleanupOldOpportunities(olderThanDays int) (int64, error) {
	return 0, nil
}

// ============ Mock Fee Service ============

// MockFeeService мок для FeeServiceInterface
type MockFeeService struct {
	fees      *models.FeeParameters
	getErr    error
	updateErr error
	mu        sync.RWMutex
}

// NewMockFeeService создает мок сервиса комиссий
func NewMockFeeService() *MockFeeService {
	return &MockFeeService{
		fees: &models.FeeParameters{
			ID:        1,
			MakerFee:  0.001,
			TakerFee:  0.001,
			FeeSource: models.FeeSourceManual,
		},
	}
}

func (m *MockFeeService) GetFees() (*models.FeeParameters, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.fees, nil
}

func (m *MockFeeService) UpdateFees(req *service.UpdateFeesRequest) (*models.FeeParameters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if req.TakerFee < 0 || req.TakerFee >= 0.05 {
		return nil, service.ErrInvalidFee
	}
	now := time.Now()
	m.fees.MakerFee = req.MakerFee
	m.fees.TakerFee = req.TakerFee
	m.fees.FeeSource = req.FeeSource
	m.fees.LastFetchedAt = &now
	return m.fees, nil
}
