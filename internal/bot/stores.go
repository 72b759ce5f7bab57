package bot

import (
	"context"
	"time"

	"triarb/internal/models"
	"triarb/internal/repository"
)

// stores.go - интерфейсы хранилища для торгового ядра
//
// Ядро зависит от узких интерфейсов, реальные репозитории их реализуют.
// Это позволяет тестировать state machine и учет на in-memory моках
// без поднятия Postgres.

// TradeStore определяет доступ ядра к сделкам
type TradeStore interface {
	Create(trade *models.Trade) error
	GetByID(tradeID string) (*models.Trade, error)
	Update(trade *models.Trade) error
	SetResolution(tradeID string, resolvedAt time.Time, resolvedAmountUSD float64, resolutionTradeID string, profitLoss, profitLossPct float64) error
	GetPartials() ([]*models.Trade, error)
}

// StateStore определяет доступ ядра к агрегату TradingState
//
// UpdateAtomic - единственный путь мутации: линеаризуемый
// read-modify-write, конкурентные вызовы не теряют обновлений.
type StateStore interface {
	Get() (*models.TradingState, error)
	UpdateAtomic(ctx context.Context, fn func(*models.TradingState) error) (*models.TradingState, error)
	ResetDailyIfBefore(ctx context.Context, dayStart, now time.Time) (bool, error)
}

// ConfigStore определяет доступ ядра к торговым настройкам
type ConfigStore interface {
	Get() (*models.TradingConfig, error)
	SetEnabled(enabled bool) error
}

// OpportunityStore определяет доступ ядра к возможностям
type OpportunityStore interface {
	UpdateStatus(opportunityID, status, reason, tradeID string) error
}

// FeeStore определяет доступ ядра к комиссиям
type FeeStore interface {
	Get() (*models.FeeParameters, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var (
	_ TradeStore       = (*repository.TradeRepository)(nil)
	_ StateStore       = (*repository.StateRepository)(nil)
	_ ConfigStore      = (*repository.ConfigRepository)(nil)
	_ OpportunityStore = (*repository.OpportunityRepository)(nil)
	_ FeeStore         = (*repository.FeeRepository)(nil)
)

// Broadcaster - интерфейс push-уведомлений для UI (WebSocket hub)
type Broadcaster interface {
	BroadcastTradeUpdate(trade *models.Trade)
	BroadcastStateUpdate(state *models.TradingState)
	BroadcastCircuitBreaker(state *models.TradingState)
}
