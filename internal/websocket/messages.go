package websocket

import (
	"time"

	"triarb/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeTradeUpdate - изменение сделки (новый статус, новая нога)
	MessageTypeTradeUpdate MessageType = "tradeUpdate"

	// MessageTypeStateUpdate - изменение системного состояния торговли.
	// Отправляется после каждой терминальной сделки, резолюции и сброса.
	MessageTypeStateUpdate MessageType = "stateUpdate"

	// MessageTypeCircuitBreaker - срабатывание или сброс circuit breaker'а
	MessageTypeCircuitBreaker MessageType = "circuitBreaker"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// TradeUpdateMessage - сообщение об изменении сделки
//
// Отправляется на каждом переходе статуса: допуск (PENDING),
// старт исполнения, завершение, зависание, резолюция.
type TradeUpdateMessage struct {
	BaseMessage
	Data *TradeUpdateData `json:"data"`
}

// TradeUpdateData - проекция сделки для панели оператора
type TradeUpdateData struct {
	TradeID       string   `json:"trade_id"`
	Status        string   `json:"status"`
	Path          []string `json:"path"`
	CurrentLeg    int      `json:"current_leg"`
	AmountIn      float64  `json:"amount_in"`
	ProfitLoss    *float64 `json:"profit_loss,omitempty"`
	ProfitLossPct *float64 `json:"profit_loss_pct,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`

	// Зависшая позиция (PARTIAL/RESOLVED)
	HeldCurrency string  `json:"held_currency,omitempty"`
	HeldAmount   float64 `json:"held_amount,omitempty"`
	HeldValueUSD float64 `json:"held_value_usd,omitempty"`
}

// StateUpdateMessage - сообщение об изменении состояния торговли
type StateUpdateMessage struct {
	BaseMessage
	Data *StateUpdateData `json:"data"`
}

// StateUpdateData - данные состояния торговли
type StateUpdateData struct {
	DailyTrades int     `json:"daily_trades"`
	DailyWins   int     `json:"daily_wins"`
	DailyProfit float64 `json:"daily_profit"`
	DailyLoss   float64 `json:"daily_loss"`

	TotalTrades int     `json:"total_trades"`
	TotalWins   int     `json:"total_wins"`
	NetPnl      float64 `json:"net_pnl"`
	WinRate     float64 `json:"win_rate"`

	IsExecuting    bool `json:"is_executing"`
	ExecutingCount int  `json:"executing_count"`

	PartialTrades      int     `json:"partial_trades"`
	PartialTradeAmount float64 `json:"partial_trade_amount"`

	IsCircuitBroken bool `json:"is_circuit_broken"`
}

// CircuitBreakerMessage - сообщение о состоянии circuit breaker'а
//
// Отправляется при срабатывании защёлки и при её явном сбросе оператором.
type CircuitBreakerMessage struct {
	BaseMessage
	Data *CircuitBreakerData `json:"data"`
}

// CircuitBreakerData - данные circuit breaker'а
type CircuitBreakerData struct {
	Active   bool       `json:"active"`
	Reason   string     `json:"reason,omitempty"`
	BrokenAt *time.Time `json:"broken_at,omitempty"`
}

// NewTradeUpdateMessage создает сообщение об изменении сделки
func NewTradeUpdateMessage(trade *models.Trade) *TradeUpdateMessage {
	return &TradeUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeTradeUpdate,
			Timestamp: time.Now(),
		},
		Data: &TradeUpdateData{
			TradeID:       trade.TradeID,
			Status:        trade.Status,
			Path:          trade.Path,
			CurrentLeg:    trade.CurrentLeg,
			AmountIn:      trade.AmountIn,
			ProfitLoss:    trade.ProfitLoss,
			ProfitLossPct: trade.ProfitLossPct,
			ErrorMessage:  trade.ErrorMessage,
			HeldCurrency:  trade.HeldCurrency,
			HeldAmount:    trade.HeldAmount,
			HeldValueUSD:  trade.HeldValueUSD,
		},
	}
}

// NewStateUpdateMessage создает сообщение об изменении состояния
func NewStateUpdateMessage(state *models.TradingState) *StateUpdateMessage {
	return &StateUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeStateUpdate,
			Timestamp: time.Now(),
		},
		Data: &StateUpdateData{
			DailyTrades:        state.DailyTrades,
			DailyWins:          state.DailyWins,
			DailyProfit:        state.DailyProfit,
			DailyLoss:          state.DailyLoss,
			TotalTrades:        state.TotalTrades,
			TotalWins:          state.TotalWins,
			NetPnl:             state.NetPnl(),
			WinRate:            state.WinRate(),
			IsExecuting:        state.IsExecuting,
			ExecutingCount:     state.ExecutingCount,
			PartialTrades:      state.PartialTrades,
			PartialTradeAmount: state.PartialTradeAmount,
			IsCircuitBroken:    state.IsCircuitBroken,
		},
	}
}

// NewCircuitBreakerMessage создает сообщение о circuit breaker'е
func NewCircuitBreakerMessage(state *models.TradingState) *CircuitBreakerMessage {
	return &CircuitBreakerMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeCircuitBreaker,
			Timestamp: time.Now(),
		},
		Data: &CircuitBreakerData{
			Active:   state.IsCircuitBroken,
			Reason:   state.CircuitBrokenReason,
			BrokenAt: state.CircuitBrokenAt,
		},
	}
}
