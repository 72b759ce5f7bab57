package service

import (
	"context"
	"time"

	"triarb/internal/bot"
	"triarb/internal/models"
	"triarb/internal/repository"
)

// TradeRepositoryInterface определяет интерфейс репозитория сделок
type TradeRepositoryInterface interface {
	Create(trade *models.Trade) error
	GetByID(tradeID string) (*models.Trade, error)
	GetRecent(limit int) ([]*models.Trade, error)
	GetByStatus(status string, limit int) ([]*models.Trade, error)
	GetInTimeRange(from, to time.Time, status string, limit int) ([]*models.Trade, error)
	GetPartials() ([]*models.Trade, error)
	Update(trade *models.Trade) error
	CountByStatus(status string) (int, error)
	Count() (int, error)
	DeleteOlderThan(timestamp time.Time) (int64, error)
}

// StateRepositoryInterface определяет интерфейс репозитория состояния
type StateRepositoryInterface interface {
	Get() (*models.TradingState, error)
	UpdateAtomic(ctx context.Context, fn func(*models.TradingState) error) (*models.TradingState, error)
}

// ConfigRepositoryInterface определяет интерфейс репозитория настроек
type ConfigRepositoryInterface interface {
	Get() (*models.TradingConfig, error)
	Update(cfg *models.TradingConfig) error
	SetEnabled(enabled bool) error
}

// OpportunityRepositoryInterface определяет интерфейс репозитория возможностей
type OpportunityRepositoryInterface interface {
	Create(opp *models.Opportunity) error
	GetByID(opportunityID string) (*models.Opportunity, error)
	GetRecent(limit int) ([]*models.Opportunity, error)
	CountByStatus(status string) (int, error)
	DeleteOlderThan(timestamp time.Time) (int64, error)
}

// FeeRepositoryInterface определяет интерфейс репозитория комиссий
type FeeRepositoryInterface interface {
	Get() (*models.FeeParameters, error)
	Update(fees *models.FeeParameters) error
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ TradeRepositoryInterface = (*repository.TradeRepository)(nil)
var _ StateRepositoryInterface = (*repository.StateRepository)(nil)
var _ ConfigRepositoryInterface = (*repository.ConfigRepository)(nil)
var _ OpportunityRepositoryInterface = (*repository.OpportunityRepository)(nil)
var _ FeeRepositoryInterface = (*repository.FeeRepository)(nil)

// ============ Интерфейсы сервисов для Dependency Injection ============

// ConfigServiceInterface определяет интерфейс сервиса настроек
type ConfigServiceInterface interface {
	GetConfig() (*models.TradingConfig, error)
	UpdateConfig(req *UpdateConfigRequest) (*models.TradingConfig, error)
}

// StateServiceInterface определяет интерфейс сервиса состояния
type StateServiceInterface interface {
	GetState() (*models.TradingState, error)
	GetStatus() (*TradingStatus, error)
}

// TradeServiceInterface определяет интерфейс сервиса сделок
type TradeServiceInterface interface {
	GetTrade(tradeID string) (*models.Trade, error)
	GetRecentTrades(limit int) ([]*models.Trade, error)
	GetTradesByStatus(status string, limit int) ([]*models.Trade, error)
	GetTradesInRange(from, to time.Time, status string, limit int) ([]*models.Trade, error)
	GetPartialTrades() ([]*models.Trade, error)
	GetTradeStats() (*TradeStats, error)
	CleanupOldTrades(olderThanDays int) (int64, error)
}

// OpportunityServiceInterface определяет интерфейс сервиса возможностей
type OpportunityServiceInterface interface {
	RecordOpportunity(ctx context.Context, req *RecordOpportunityRequest) (*models.Opportunity, error)
	GetOpportunity(opportunityID string) (*models.Opportunity, error)
	GetRecentOpportunities(limit int) ([]*models.Opportunity, error)
	CleanupOldOpportunities(olderThanDays int) (int64, error)
}

// FeeServiceInterface определяет интерфейс сервиса комиссий
type FeeServiceInterface interface {
	GetFees() (*models.FeeParameters, error)
	UpdateFees(req *UpdateFeesRequest) (*models.FeeParameters, error)
}

// OperatorInterface - операторские команды ядра.
// Реализуется engine'ом; вынесен в интерфейс чтобы handlers
// не зависели от конкретного типа.
type OperatorInterface interface {
	EnableTrading(ctx context.Context) error
	DisableTrading(ctx context.Context, reason string) error
	ResetBreaker(ctx context.Context) (*models.TradingState, error)
	ResetDaily(ctx context.Context) (*models.TradingState, error)
	ResetAll(ctx context.Context, confirm bool) (*models.TradingState, error)
}

var _ OperatorInterface = (*bot.Engine)(nil)

// ResolverInterface - резолюция зависших позиций
type ResolverInterface interface {
	PreviewResolve(ctx context.Context, tradeID string) (*bot.ResolutionPreview, error)
	Resolve(ctx context.Context, tradeID string) (*models.Trade, error)
}

var _ ResolverInterface = (*bot.PartialResolver)(nil)
