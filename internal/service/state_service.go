package service

import (
	"time"

	"triarb/internal/models"
)

// StateService предоставляет read-only доступ к торговому состоянию.
//
// Все мутации состояния идут через ядро (engine, lifecycle, resolver);
// API читает.
type StateService struct {
	stateRepo  StateRepositoryInterface
	configRepo ConfigRepositoryInterface
}

// NewStateService создает новый экземпляр StateService.
func NewStateService(stateRepo StateRepositoryInterface, configRepo ConfigRepositoryInterface) *StateService {
	return &StateService{stateRepo: stateRepo, configRepo: configRepo}
}

// GetState возвращает полный снимок торгового состояния
func (s *StateService) GetState() (*models.TradingState, error) {
	return s.stateRepo.Get()
}

// TradingStatus - сводка для дашборда
type TradingStatus struct {
	IsEnabled           bool                   `json:"is_enabled"`
	Phase               models.AdmissionPhase  `json:"phase"`
	IsCircuitBroken     bool                   `json:"is_circuit_broken"`
	CircuitBrokenReason string                 `json:"circuit_broken_reason,omitempty"`
	CircuitBrokenAt     *time.Time             `json:"circuit_broken_at,omitempty"`
	DailyNetPnl         float64                `json:"daily_net_pnl"`
	DailyTrades         int                    `json:"daily_trades"`
	TotalNetPnl         float64                `json:"total_net_pnl"`
	TotalTrades         int                    `json:"total_trades"`
	WinRate             float64                `json:"win_rate"`
	PartialTrades       int                    `json:"partial_trades"`
	PartialTradeAmount  float64                `json:"partial_trade_amount"`
	LastTradeAt         *time.Time             `json:"last_trade_at,omitempty"`
}

// GetStatus собирает сводку состояния и настроек в один ответ
func (s *StateService) GetStatus() (*TradingStatus, error) {
	state, err := s.stateRepo.Get()
	if err != nil {
		return nil, err
	}
	cfg, err := s.configRepo.Get()
	if err != nil {
		return nil, err
	}
	return &TradingStatus{
		IsEnabled:           cfg.IsEnabled,
		Phase:               state.Phase(),
		IsCircuitBroken:     state.IsCircuitBroken,
		CircuitBrokenReason: state.CircuitBrokenReason,
		CircuitBrokenAt:     state.CircuitBrokenAt,
		DailyNetPnl:         state.DailyProfit - state.DailyLoss,
		DailyTrades:         state.DailyTrades,
		TotalNetPnl:         state.NetPnl(),
		TotalTrades:         state.TotalTrades,
		WinRate:             state.WinRate(),
		PartialTrades:       state.PartialTrades,
		PartialTradeAmount:  state.PartialTradeAmount,
		LastTradeAt:         state.LastTradeAt,
	}, nil
}
