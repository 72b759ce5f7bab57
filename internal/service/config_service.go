package service

import (
	"errors"

	"triarb/internal/models"
)

// Ошибки сервиса настроек
var (
	ErrConfigLocked           = errors.New("settings are locked while trading is enabled")
	ErrInvalidTradeAmount     = errors.New("trade_amount must be > 0")
	ErrInvalidProfitThreshold = errors.New("min_profit_threshold must be >= 0")
	ErrInvalidLossLimit       = errors.New("loss limits must be >= 0")
	ErrInvalidExecutionMode   = errors.New("execution_mode must be sequential or parallel")
	ErrInvalidParallelTrades  = errors.New("max_parallel_trades must be >= 1")
	ErrInvalidRetries         = errors.New("max_retries_per_leg must be >= 0")
	ErrInvalidOrderTimeout    = errors.New("order_timeout_seconds must be >= 1")
	ErrInvalidStartCurrency   = errors.New("start_currency_mode must be ALL or CUSTOM")
	ErrEmptyStartCurrencies   = errors.New("start_currencies must not be empty in CUSTOM mode")
)

// ConfigService предоставляет бизнес-логику для управления торговыми настройками.
//
// Отвечает за:
// - Получение и обновление глобальных торговых настроек
// - Валидацию параметров
// - Блокировку изменений на время живой торговли
type ConfigService struct {
	configRepo ConfigRepositoryInterface
}

// NewConfigService создает новый экземпляр ConfigService.
func NewConfigService(configRepo ConfigRepositoryInterface) *ConfigService {
	return &ConfigService{configRepo: configRepo}
}

// GetConfig возвращает текущие торговые настройки.
//
// Если записи в БД нет, создается запись с дефолтными значениями.
func (s *ConfigService) GetConfig() (*models.TradingConfig, error) {
	return s.configRepo.Get()
}

// UpdateConfigRequest представляет запрос на обновление настроек.
// Все поля опциональны - обновляются только переданные.
type UpdateConfigRequest struct {
	TradeAmount        *float64  `json:"trade_amount,omitempty"`
	MinProfitThreshold *float64  `json:"min_profit_threshold,omitempty"`
	MaxDailyLoss       *float64  `json:"max_daily_loss,omitempty"`
	MaxTotalLoss       *float64  `json:"max_total_loss,omitempty"`
	ExecutionMode      *string   `json:"execution_mode,omitempty"`
	MaxParallelTrades  *int      `json:"max_parallel_trades,omitempty"`
	MaxRetriesPerLeg   *int      `json:"max_retries_per_leg,omitempty"`
	OrderTimeoutSec    *int      `json:"order_timeout_seconds,omitempty"`
	StartCurrencyMode  *string   `json:"start_currency_mode,omitempty"`
	StartCurrencies    *[]string `json:"start_currencies,omitempty"`
	MaxPairs           *int      `json:"max_pairs,omitempty"`
	MinVolume24h       *float64  `json:"min_volume_24h,omitempty"`
	MaxCostMin         *float64  `json:"max_cost_min,omitempty"`
}

// UpdateConfig обновляет торговые настройки.
//
// Изменения отклоняются пока торговля включена: параметры заморожены
// на время живой торговли, сначала выключи. Принимает только те поля,
// которые нужно обновить, и валидирует их перед сохранением.
func (s *ConfigService) UpdateConfig(req *UpdateConfigRequest) (*models.TradingConfig, error) {
	cfg, err := s.configRepo.Get()
	if err != nil {
		return nil, err
	}
	if cfg.IsEnabled {
		return nil, ErrConfigLocked
	}

	if req.TradeAmount != nil {
		if *req.TradeAmount <= 0 {
			return nil, ErrInvalidTradeAmount
		}
		cfg.TradeAmount = *req.TradeAmount
	}
	if req.MinProfitThreshold != nil {
		if *req.MinProfitThreshold < 0 {
			return nil, ErrInvalidProfitThreshold
		}
		cfg.MinProfitThreshold = *req.MinProfitThreshold
	}
	if req.MaxDailyLoss != nil {
		if *req.MaxDailyLoss < 0 {
			return nil, ErrInvalidLossLimit
		}
		cfg.MaxDailyLoss = *req.MaxDailyLoss
	}
	if req.MaxTotalLoss != nil {
		if *req.MaxTotalLoss < 0 {
			return nil, ErrInvalidLossLimit
		}
		cfg.MaxTotalLoss = *req.MaxTotalLoss
	}
	if req.ExecutionMode != nil {
		if *req.ExecutionMode != models.ExecutionModeSequential && *req.ExecutionMode != models.ExecutionModeParallel {
			return nil, ErrInvalidExecutionMode
		}
		cfg.ExecutionMode = *req.ExecutionMode
	}
	if req.MaxParallelTrades != nil {
		if *req.MaxParallelTrades < 1 {
			return nil, ErrInvalidParallelTrades
		}
		cfg.MaxParallelTrades = *req.MaxParallelTrades
	}
	if req.MaxRetriesPerLeg != nil {
		if *req.MaxRetriesPerLeg < 0 {
			return nil, ErrInvalidRetries
		}
		cfg.MaxRetriesPerLeg = *req.MaxRetriesPerLeg
	}
	if req.OrderTimeoutSec != nil {
		if *req.OrderTimeoutSec < 1 {
			return nil, ErrInvalidOrderTimeout
		}
		cfg.OrderTimeoutSec = *req.OrderTimeoutSec
	}
	if req.StartCurrencyMode != nil {
		if *req.StartCurrencyMode != models.StartCurrencyAll && *req.StartCurrencyMode != models.StartCurrencyCustom {
			return nil, ErrInvalidStartCurrency
		}
		cfg.StartCurrencyMode = *req.StartCurrencyMode
	}
	if req.StartCurrencies != nil {
		cfg.StartCurrencies = *req.StartCurrencies
	}
	if cfg.StartCurrencyMode == models.StartCurrencyCustom && len(cfg.StartCurrencies) == 0 {
		return nil, ErrEmptyStartCurrencies
	}
	if req.MaxPairs != nil {
		cfg.MaxPairs = *req.MaxPairs
	}
	if req.MinVolume24h != nil {
		cfg.MinVolume24h = *req.MinVolume24h
	}
	if req.MaxCostMin != nil {
		cfg.MaxCostMin = *req.MaxCostMin
	}

	if err := s.configRepo.Update(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
