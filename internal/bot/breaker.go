package bot

import (
	"fmt"
	"time"

	"triarb/internal/models"
)

// EvaluateCircuitBreaker проверяет лимиты потерь и взводит защёлку.
//
// Вызывается внутри той же атомарной мутации, что и учёт результата
// сделки: решение принимается по уже обновлённым счётчикам. Защёлка
// односторонняя — однажды взведённый breaker снимается только явным
// сбросом оператора, даже если потери позже уменьшатся.
//
// Возвращает true если breaker сработал именно в этом вызове.
func EvaluateCircuitBreaker(s *models.TradingState, cfg *models.TradingConfig, now time.Time) bool {
	if s.IsCircuitBroken {
		return false
	}

	var reason string
	switch {
	case cfg.MaxDailyLoss > 0 && s.DailyLoss >= cfg.MaxDailyLoss:
		reason = fmt.Sprintf("daily loss limit reached: %.2f >= %.2f", s.DailyLoss, cfg.MaxDailyLoss)
	case cfg.MaxTotalLoss > 0 && s.TotalLoss >= cfg.MaxTotalLoss:
		reason = fmt.Sprintf("total loss limit reached: %.2f >= %.2f", s.TotalLoss, cfg.MaxTotalLoss)
	default:
		return false
	}

	brokenAt := now.UTC()
	s.IsCircuitBroken = true
	s.CircuitBrokenAt = &brokenAt
	s.CircuitBrokenReason = reason
	return true
}

// ResetCircuitBreaker снимает защёлку, не трогая счётчики потерь.
// Если лимит всё ещё превышен, breaker сработает снова на первой же
// завершённой сделке.
func ResetCircuitBreaker(s *models.TradingState) {
	s.IsCircuitBroken = false
	s.CircuitBrokenAt = nil
	s.CircuitBrokenReason = ""
}
