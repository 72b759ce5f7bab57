package models

import "time"

// TradingState представляет системное состояние торговли (singleton, id=1)
//
// Единственный разделяемый изменяемый агрегат ядра. Любая мутация
// идёт через StateRepository.UpdateAtomic — никаких read-then-write.
type TradingState struct {
	ID int `json:"id" db:"id"`

	// Дневные счётчики (UTC-день, обнуляются daily reset'ом)
	DailyLoss   float64 `json:"daily_loss" db:"daily_loss"`
	DailyProfit float64 `json:"daily_profit" db:"daily_profit"`
	DailyTrades int     `json:"daily_trades" db:"daily_trades"`
	DailyWins   int     `json:"daily_wins" db:"daily_wins"`

	// Кумулятивные счётчики (сбрасываются только reset-all)
	TotalLoss   float64 `json:"total_loss" db:"total_loss"`
	TotalProfit float64 `json:"total_profit" db:"total_profit"`
	TotalTrades int     `json:"total_trades" db:"total_trades"`
	TotalWins   int     `json:"total_wins" db:"total_wins"`

	// Circuit breaker (защёлка, снимается только явным reset'ом)
	IsCircuitBroken     bool       `json:"is_circuit_broken" db:"is_circuit_broken"`
	CircuitBrokenAt     *time.Time `json:"circuit_broken_at,omitempty" db:"circuit_broken_at"`
	CircuitBrokenReason string     `json:"circuit_broken_reason,omitempty" db:"circuit_broken_reason"`

	// Резервирование мощности
	IsExecuting    bool   `json:"is_executing" db:"is_executing"`         // sequential-режим
	CurrentTradeID string `json:"current_trade_id,omitempty" db:"current_trade_id"`
	ExecutingCount int    `json:"executing_count" db:"executing_count"` // parallel-режим

	// Rollup зависших позиций (вне обычного учёта до резолюции)
	PartialTrades          int     `json:"partial_trades" db:"partial_trades"`
	PartialEstimatedLoss   float64 `json:"partial_estimated_loss" db:"partial_estimated_loss"`
	PartialEstimatedProfit float64 `json:"partial_estimated_profit" db:"partial_estimated_profit"`
	PartialTradeAmount     float64 `json:"partial_trade_amount" db:"partial_trade_amount"` // зависший капитал, USDT

	LastTradeAt    *time.Time `json:"last_trade_at,omitempty" db:"last_trade_at"`
	LastDailyReset time.Time  `json:"last_daily_reset" db:"last_daily_reset"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// AdmissionPhase — внутреннее суммарное представление флагов допуска.
// В БД хранится плоско (IsExecuting + CurrentTradeID + circuit-поля),
// наружу проецируется явным типом.
type AdmissionPhase string

const (
	AdmissionIdle          AdmissionPhase = "idle"
	AdmissionExecuting     AdmissionPhase = "executing"
	AdmissionCircuitBroken AdmissionPhase = "circuit_broken"
)

// Phase возвращает текущую фазу допуска
func (s *TradingState) Phase() AdmissionPhase {
	if s.IsCircuitBroken {
		return AdmissionCircuitBroken
	}
	if s.IsExecuting || s.ExecutingCount > 0 {
		return AdmissionExecuting
	}
	return AdmissionIdle
}

// NetPnl возвращает суммарный реализованный результат
func (s *TradingState) NetPnl() float64 {
	return s.TotalProfit - s.TotalLoss
}

// WinRate возвращает долю прибыльных сделок (0 если сделок не было)
func (s *TradingState) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.TotalWins) / float64(s.TotalTrades)
}
