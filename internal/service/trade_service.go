package service

import (
	"errors"
	"time"

	"triarb/internal/models"
)

// Ошибки сервиса сделок
var (
	ErrInvalidStatus    = errors.New("unknown trade status")
	ErrInvalidTimeRange = errors.New("'from' must be before 'to'")
	ErrInvalidRetention = errors.New("retention days must be >= 1")
)

// Лимиты выборок
const (
	defaultTradeLimit = 50
	maxTradeLimit     = 500
)

// TradeService предоставляет бизнес-логику для чтения истории сделок.
type TradeService struct {
	tradeRepo TradeRepositoryInterface
}

// NewTradeService создает новый экземпляр TradeService.
func NewTradeService(tradeRepo TradeRepositoryInterface) *TradeService {
	return &TradeService{tradeRepo: tradeRepo}
}

// GetTrade возвращает сделку по идентификатору
func (s *TradeService) GetTrade(tradeID string) (*models.Trade, error) {
	return s.tradeRepo.GetByID(tradeID)
}

// GetRecentTrades возвращает последние сделки, новые первыми
func (s *TradeService) GetRecentTrades(limit int) ([]*models.Trade, error) {
	return s.tradeRepo.GetRecent(clampLimit(limit))
}

// GetTradesByStatus возвращает сделки в заданном статусе
func (s *TradeService) GetTradesByStatus(status string, limit int) ([]*models.Trade, error) {
	if !validTradeStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.tradeRepo.GetByStatus(status, clampLimit(limit))
}

// GetTradesInRange возвращает сделки за интервал времени;
// status опционален (пустая строка - все статусы)
func (s *TradeService) GetTradesInRange(from, to time.Time, status string, limit int) ([]*models.Trade, error) {
	if !from.Before(to) {
		return nil, ErrInvalidTimeRange
	}
	if status != "" && !validTradeStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.tradeRepo.GetInTimeRange(from, to, status, clampLimit(limit))
}

// GetPartialTrades возвращает все зависшие позиции, ждущие резолюции
func (s *TradeService) GetPartialTrades() ([]*models.Trade, error) {
	return s.tradeRepo.GetPartials()
}

// TradeStats - распределение сделок по статусам
type TradeStats struct {
	Total     int `json:"total"`
	Executing int `json:"executing"`
	Completed int `json:"completed"`
	Partial   int `json:"partial"`
	Failed    int `json:"failed"`
	Resolved  int `json:"resolved"`
}

// GetTradeStats возвращает счётчики сделок по статусам
func (s *TradeService) GetTradeStats() (*TradeStats, error) {
	stats := &TradeStats{}
	var err error
	if stats.Total, err = s.tradeRepo.Count(); err != nil {
		return nil, err
	}
	counts := map[string]*int{
		models.TradeStatusExecuting: &stats.Executing,
		models.TradeStatusCompleted: &stats.Completed,
		models.TradeStatusPartial:   &stats.Partial,
		models.TradeStatusFailed:    &stats.Failed,
		models.TradeStatusResolved:  &stats.Resolved,
	}
	for status, dst := range counts {
		if *dst, err = s.tradeRepo.CountByStatus(status); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// CleanupOldTrades удаляет сделки старше olderThanDays дней.
// PARTIAL-строки не удаляются независимо от возраста: по ним
// всё ещё завис капитал.
func (s *TradeService) CleanupOldTrades(olderThanDays int) (int64, error) {
	if olderThanDays < 1 {
		return 0, ErrInvalidRetention
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	return s.tradeRepo.DeleteOlderThan(cutoff)
}

// clampLimit приводит лимит выборки к допустимому диапазону
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultTradeLimit
	}
	if limit > maxTradeLimit {
		return maxTradeLimit
	}
	return limit
}

// validTradeStatus проверяет, что статус известен state machine
func validTradeStatus(status string) bool {
	switch status {
	case models.TradeStatusPending, models.TradeStatusExecuting, models.TradeStatusCompleted,
		models.TradeStatusPartial, models.TradeStatusFailed, models.TradeStatusResolved:
		return true
	}
	return false
}
