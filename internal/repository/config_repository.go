package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"triarb/internal/models"
)

// Ошибки репозитория торговых настроек
var (
	ErrConfigNotFound = errors.New("trading config not found")
)

// ConfigRepository - работа с таблицей trading_config (всегда одна запись, id=1)
type ConfigRepository struct {
	db *sql.DB
}

// NewConfigRepository создает новый экземпляр репозитория
func NewConfigRepository(db *sql.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// Get возвращает торговые настройки (всегда id=1, одна запись)
func (r *ConfigRepository) Get() (*models.TradingConfig, error) {
	query := `
		SELECT id, is_enabled, trade_amount, min_profit_threshold, max_daily_loss, max_total_loss,
			execution_mode, max_parallel_trades, max_retries_per_leg, order_timeout_seconds,
			start_currency_mode, start_currencies, max_pairs, min_volume_24h, max_cost_min, updated_at
		FROM trading_config
		WHERE id = 1`

	cfg := &models.TradingConfig{}
	var currenciesJSON []byte
	err := r.db.QueryRow(query).Scan(
		&cfg.ID,
		&cfg.IsEnabled,
		&cfg.TradeAmount,
		&cfg.MinProfitThreshold,
		&cfg.MaxDailyLoss,
		&cfg.MaxTotalLoss,
		&cfg.ExecutionMode,
		&cfg.MaxParallelTrades,
		&cfg.MaxRetriesPerLeg,
		&cfg.OrderTimeoutSec,
		&cfg.StartCurrencyMode,
		&currenciesJSON,
		&cfg.MaxPairs,
		&cfg.MinVolume24h,
		&cfg.MaxCostMin,
		&cfg.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Если записи нет, создаем ее с дефолтными значениями
			return r.createDefault()
		}
		return nil, err
	}

	if len(currenciesJSON) > 0 {
		if err := json.Unmarshal(currenciesJSON, &cfg.StartCurrencies); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Update обновляет торговые настройки
//
// Проверка "настройки заперты пока торговля включена" живет в сервисе;
// репозиторий пишет безусловно.
func (r *ConfigRepository) Update(cfg *models.TradingConfig) error {
	currenciesJSON, err := json.Marshal(cfg.StartCurrencies)
	if err != nil {
		return err
	}

	query := `
		UPDATE trading_config
		SET is_enabled = $1, trade_amount = $2, min_profit_threshold = $3, max_daily_loss = $4,
			max_total_loss = $5, execution_mode = $6, max_parallel_trades = $7,
			max_retries_per_leg = $8, order_timeout_seconds = $9, start_currency_mode = $10,
			start_currencies = $11, max_pairs = $12, min_volume_24h = $13, max_cost_min = $14,
			updated_at = $15
		WHERE id = 1`

	cfg.UpdatedAt = time.Now().UTC()

	result, err := r.db.Exec(query,
		cfg.IsEnabled,
		cfg.TradeAmount,
		cfg.MinProfitThreshold,
		cfg.MaxDailyLoss,
		cfg.MaxTotalLoss,
		cfg.ExecutionMode,
		cfg.MaxParallelTrades,
		cfg.MaxRetriesPerLeg,
		cfg.OrderTimeoutSec,
		cfg.StartCurrencyMode,
		currenciesJSON,
		cfg.MaxPairs,
		cfg.MinVolume24h,
		cfg.MaxCostMin,
		cfg.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrConfigNotFound
	}

	return nil
}

// SetEnabled включает/выключает торговлю
func (r *ConfigRepository) SetEnabled(enabled bool) error {
	query := `
		UPDATE trading_config
		SET is_enabled = $1, updated_at = $2
		WHERE id = 1`

	result, err := r.db.Exec(query, enabled, time.Now().UTC())
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrConfigNotFound
	}

	return nil
}

// createDefault создает запись настроек с дефолтными значениями
func (r *ConfigRepository) createDefault() (*models.TradingConfig, error) {
	cfg := DefaultTradingConfig()

	currenciesJSON, err := json.Marshal(cfg.StartCurrencies)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO trading_config (id, is_enabled, trade_amount, min_profit_threshold, max_daily_loss,
			max_total_loss, execution_mode, max_parallel_trades, max_retries_per_leg,
			order_timeout_seconds, start_currency_mode, start_currencies, max_pairs,
			min_volume_24h, max_cost_min, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.Exec(query,
		cfg.IsEnabled,
		cfg.TradeAmount,
		cfg.MinProfitThreshold,
		cfg.MaxDailyLoss,
		cfg.MaxTotalLoss,
		cfg.ExecutionMode,
		cfg.MaxParallelTrades,
		cfg.MaxRetriesPerLeg,
		cfg.OrderTimeoutSec,
		cfg.StartCurrencyMode,
		currenciesJSON,
		cfg.MaxPairs,
		cfg.MinVolume24h,
		cfg.MaxCostMin,
		cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultTradingConfig возвращает настройки по умолчанию.
// Торговля выключена: включение - явное действие оператора.
func DefaultTradingConfig() *models.TradingConfig {
	return &models.TradingConfig{
		ID:                 1,
		IsEnabled:          false,
		TradeAmount:        10.0,
		MinProfitThreshold: 0.002,
		MaxDailyLoss:       30.0,
		MaxTotalLoss:       100.0,
		ExecutionMode:      models.ExecutionModeSequential,
		MaxParallelTrades:  3,
		MaxRetriesPerLeg:   2,
		OrderTimeoutSec:    10,
		StartCurrencyMode:  models.StartCurrencyAll,
		StartCurrencies:    []string{},
		MaxPairs:           200,
		MinVolume24h:       100000.0,
		MaxCostMin:         25.0,
		UpdatedAt:          time.Now().UTC(),
	}
}
