package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"triarb/internal/models"
)

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

const tradeColumns = `trade_id, path, legs, amount_in, amount_out, profit_loss, profit_loss_pct,
		status, current_leg, error_message, held_currency, held_amount, held_value_usd, leg_fills,
		started_at, completed_at, total_execution_ms, opportunity_profit_pct,
		resolved_at, resolved_amount_usd, resolution_trade_id`

// TradeRepository - работа с таблицей trades
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create создает запись о сделке (статус PENDING при допуске)
func (r *TradeRepository) Create(trade *models.Trade) error {
	fillsJSON, err := json.Marshal(trade.LegFills)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	if trade.StartedAt.IsZero() {
		trade.StartedAt = time.Now().UTC()
	}

	_, err = r.db.Exec(
		query,
		trade.TradeID,
		pq.Array(trade.Path),
		trade.Legs,
		trade.AmountIn,
		trade.AmountOut,
		trade.ProfitLoss,
		trade.ProfitLossPct,
		trade.Status,
		trade.CurrentLeg,
		trade.ErrorMessage,
		trade.HeldCurrency,
		trade.HeldAmount,
		trade.HeldValueUSD,
		fillsJSON,
		trade.StartedAt,
		trade.CompletedAt,
		trade.TotalExecutionMs,
		trade.OpportunityProfitPct,
		trade.ResolvedAt,
		trade.ResolvedAmountUSD,
		trade.ResolutionTradeID,
	)

	return err
}

// scanner абстрагирует *sql.Row и *sql.Rows для scanTrade
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade читает одну строку таблицы trades
func scanTrade(s scanner) (*models.Trade, error) {
	trade := &models.Trade{}
	var fillsJSON []byte

	err := s.Scan(
		&trade.TradeID,
		pq.Array(&trade.Path),
		&trade.Legs,
		&trade.AmountIn,
		&trade.AmountOut,
		&trade.ProfitLoss,
		&trade.ProfitLossPct,
		&trade.Status,
		&trade.CurrentLeg,
		&trade.ErrorMessage,
		&trade.HeldCurrency,
		&trade.HeldAmount,
		&trade.HeldValueUSD,
		&fillsJSON,
		&trade.StartedAt,
		&trade.CompletedAt,
		&trade.TotalExecutionMs,
		&trade.OpportunityProfitPct,
		&trade.ResolvedAt,
		&trade.ResolvedAmountUSD,
		&trade.ResolutionTradeID,
	)
	if err != nil {
		return nil, err
	}

	if len(fillsJSON) > 0 {
		if err := json.Unmarshal(fillsJSON, &trade.LegFills); err != nil {
			return nil, err
		}
	}

	return trade, nil
}

// collectTrades читает все строки результата
func collectTrades(rows *sql.Rows) ([]*models.Trade, error) {
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// GetByID возвращает сделку по trade_id
func (r *TradeRepository) GetByID(tradeID string) (*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = $1`

	trade, err := scanTrade(r.db.QueryRow(query, tradeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}

	return trade, nil
}

// GetRecent возвращает последние N сделок
func (r *TradeRepository) GetRecent(limit int) ([]*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades ORDER BY started_at DESC LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}

	return collectTrades(rows)
}

// GetByStatus возвращает сделки с определенным статусом
func (r *TradeRepository) GetByStatus(status string, limit int) ([]*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE status = $1 ORDER BY started_at DESC LIMIT $2`

	rows, err := r.db.Query(query, status, limit)
	if err != nil {
		return nil, err
	}

	return collectTrades(rows)
}

// GetInTimeRange возвращает сделки за период, опционально фильтруя по статусу
func (r *TradeRepository) GetInTimeRange(from, to time.Time, status string, limit int) ([]*models.Trade, error) {
	var rows *sql.Rows
	var err error

	if status != "" {
		query := `SELECT ` + tradeColumns + ` FROM trades
			WHERE started_at >= $1 AND started_at <= $2 AND status = $3
			ORDER BY started_at DESC LIMIT $4`
		rows, err = r.db.Query(query, from, to, status, limit)
	} else {
		query := `SELECT ` + tradeColumns + ` FROM trades
			WHERE started_at >= $1 AND started_at <= $2
			ORDER BY started_at DESC LIMIT $3`
		rows, err = r.db.Query(query, from, to, limit)
	}

	if err != nil {
		return nil, err
	}

	return collectTrades(rows)
}

// GetPartials возвращает все зависшие сделки (статус PARTIAL)
func (r *TradeRepository) GetPartials() ([]*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE status = $1 ORDER BY started_at ASC`

	rows, err := r.db.Query(query, models.TradeStatusPartial)
	if err != nil {
		return nil, err
	}

	return collectTrades(rows)
}

// Update обновляет изменяемые в жизненном цикле поля сделки
func (r *TradeRepository) Update(trade *models.Trade) error {
	fillsJSON, err := json.Marshal(trade.LegFills)
	if err != nil {
		return err
	}

	query := `
		UPDATE trades
		SET amount_out = $1, profit_loss = $2, profit_loss_pct = $3, status = $4,
			current_leg = $5, error_message = $6, held_currency = $7, held_amount = $8,
			held_value_usd = $9, leg_fills = $10, completed_at = $11, total_execution_ms = $12
		WHERE trade_id = $13`

	result, err := r.db.Exec(query,
		trade.AmountOut,
		trade.ProfitLoss,
		trade.ProfitLossPct,
		trade.Status,
		trade.CurrentLeg,
		trade.ErrorMessage,
		trade.HeldCurrency,
		trade.HeldAmount,
		trade.HeldValueUSD,
		fillsJSON,
		trade.CompletedAt,
		trade.TotalExecutionMs,
		trade.TradeID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrTradeNotFound
	}

	return nil
}

// SetResolution записывает результат резолюции зависшей сделки
//
// Переводит PARTIAL → RESOLVED одним UPDATE: условие status = PARTIAL
// защищает от двойной резолюции.
func (r *TradeRepository) SetResolution(tradeID string, resolvedAt time.Time, resolvedAmountUSD float64, resolutionTradeID string, profitLoss, profitLossPct float64) error {
	query := `
		UPDATE trades
		SET status = $1, resolved_at = $2, resolved_amount_usd = $3, resolution_trade_id = $4,
			profit_loss = $5, profit_loss_pct = $6
		WHERE trade_id = $7 AND status = $8`

	result, err := r.db.Exec(query,
		models.TradeStatusResolved,
		resolvedAt,
		resolvedAmountUSD,
		resolutionTradeID,
		profitLoss,
		profitLossPct,
		tradeID,
		models.TradeStatusPartial,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrTradeNotFound
	}

	return nil
}

// CountByStatus возвращает количество сделок с определенным статусом
func (r *TradeRepository) CountByStatus(status string) (int, error) {
	query := `SELECT COUNT(*) FROM trades WHERE status = $1`

	var count int
	err := r.db.QueryRow(query, status).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Count возвращает общее количество сделок
func (r *TradeRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM trades`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteOlderThan удаляет завершенные сделки старше указанной даты.
// PARTIAL не удаляется никогда - это открытая позиция.
func (r *TradeRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM trades WHERE started_at < $1 AND status != $2`

	result, err := r.db.Exec(query, timestamp, models.TradeStatusPartial)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
