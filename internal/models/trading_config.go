package models

import "time"

// TradingConfig представляет глобальные торговые настройки (singleton, id=1)
//
// Инвариант: изменение настроек отклоняется пока IsEnabled = true —
// параметры заморожены на время живой торговли.
type TradingConfig struct {
	ID                 int     `json:"id" db:"id"`
	IsEnabled          bool    `json:"is_enabled" db:"is_enabled"`
	TradeAmount        float64 `json:"trade_amount" db:"trade_amount"`                   // USDT на одну сделку
	MinProfitThreshold float64 `json:"min_profit_threshold" db:"min_profit_threshold"`   // доля, напр. 0.002 = 0.2%
	MaxDailyLoss       float64 `json:"max_daily_loss" db:"max_daily_loss"`               // USDT
	MaxTotalLoss       float64 `json:"max_total_loss" db:"max_total_loss"`               // USDT
	ExecutionMode      string  `json:"execution_mode" db:"execution_mode"`               // sequential, parallel
	MaxParallelTrades  int     `json:"max_parallel_trades" db:"max_parallel_trades"`
	MaxRetriesPerLeg   int     `json:"max_retries_per_leg" db:"max_retries_per_leg"`
	OrderTimeoutSec    int     `json:"order_timeout_seconds" db:"order_timeout_seconds"`

	// Фильтр стартовых валют
	StartCurrencyMode string   `json:"start_currency_mode" db:"start_currency_mode"` // ALL, CUSTOM
	StartCurrencies   []string `json:"start_currencies" db:"start_currencies"`       // JSONB, для CUSTOM

	// Фильтры отбора пар
	MaxPairs     int     `json:"max_pairs" db:"max_pairs"`
	MinVolume24h float64 `json:"min_volume_24h" db:"min_volume_24h"`
	MaxCostMin   float64 `json:"max_cost_min" db:"max_cost_min"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Режимы исполнения
const (
	ExecutionModeSequential = "sequential" // максимум одна сделка одновременно
	ExecutionModeParallel   = "parallel"   // до MaxParallelTrades одновременно
)

// Режимы фильтра стартовых валют
const (
	StartCurrencyAll    = "ALL"
	StartCurrencyCustom = "CUSTOM"
)

// AllowsStartCurrency проверяет разрешена ли стартовая валюта фильтром
func (c *TradingConfig) AllowsStartCurrency(currency string) bool {
	if c.StartCurrencyMode != StartCurrencyCustom {
		return true
	}
	for _, cur := range c.StartCurrencies {
		if cur == currency {
			return true
		}
	}
	return false
}
