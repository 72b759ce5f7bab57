package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"triarb/internal/models"
	"triarb/pkg/retry"
)

// Ошибки репозитория торгового состояния
var (
	ErrStateNotFound = errors.New("trading state not found")
)

const stateColumns = `id, daily_loss, daily_profit, daily_trades, daily_wins,
		total_loss, total_profit, total_trades, total_wins,
		is_circuit_broken, circuit_broken_at, circuit_broken_reason,
		is_executing, current_trade_id, executing_count,
		partial_trades, partial_estimated_loss, partial_estimated_profit, partial_trade_amount,
		last_trade_at, last_daily_reset, updated_at`

// StateRepository - работа с таблицей trading_state (всегда одна запись, id=1)
//
// Единственная точка сериализации для агрегата TradingState: вся мутация
// идет через UpdateAtomic (транзакционный read-modify-write под row lock),
// конкурентные завершения сделок не теряют обновлений.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository создает новый экземпляр репозитория
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// scanState читает одну строку таблицы trading_state
func scanState(s scanner) (*models.TradingState, error) {
	state := &models.TradingState{}
	err := s.Scan(
		&state.ID,
		&state.DailyLoss,
		&state.DailyProfit,
		&state.DailyTrades,
		&state.DailyWins,
		&state.TotalLoss,
		&state.TotalProfit,
		&state.TotalTrades,
		&state.TotalWins,
		&state.IsCircuitBroken,
		&state.CircuitBrokenAt,
		&state.CircuitBrokenReason,
		&state.IsExecuting,
		&state.CurrentTradeID,
		&state.ExecutingCount,
		&state.PartialTrades,
		&state.PartialEstimatedLoss,
		&state.PartialEstimatedProfit,
		&state.PartialTradeAmount,
		&state.LastTradeAt,
		&state.LastDailyReset,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Get возвращает текущее состояние (без блокировки, для чтения/API)
func (r *StateRepository) Get() (*models.TradingState, error) {
	query := `SELECT ` + stateColumns + ` FROM trading_state WHERE id = 1`

	state, err := scanState(r.db.QueryRow(query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.createDefault()
		}
		return nil, err
	}

	return state, nil
}

// UpdateAtomic выполняет атомарный read-modify-write агрегата
//
// BEGIN; SELECT ... FOR UPDATE; fn(state); UPDATE; COMMIT.
// Конфликты сериализации (40001) и deadlock (40P01) повторяются с backoff -
// потерять обновление счетчиков нельзя, это сломало бы circuit breaker.
//
// Если fn возвращает ошибку, транзакция откатывается и ошибка
// возвращается вызывающему без retry.
func (r *StateRepository) UpdateAtomic(ctx context.Context, fn func(*models.TradingState) error) (*models.TradingState, error) {
	var updated *models.TradingState

	cfg := retry.DefaultConfig()
	cfg.RetryIf = isRetryableTxError

	err := retry.Do(ctx, func() error {
		state, err := r.updateOnce(ctx, fn)
		if err != nil {
			return err
		}
		updated = state
		return nil
	}, cfg)

	if err != nil {
		return nil, err
	}

	return updated, nil
}

// updateOnce - одна попытка транзакционного обновления
func (r *StateRepository) updateOnce(ctx context.Context, fn func(*models.TradingState) error) (*models.TradingState, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + stateColumns + ` FROM trading_state WHERE id = 1 FOR UPDATE`

	state, err := scanState(tx.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			state = defaultTradingState()
			if err := insertState(ctx, tx, state); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	if err := fn(state); err != nil {
		// Ошибка бизнес-логики - не retry'им
		return nil, retry.Permanent(err)
	}

	state.UpdatedAt = time.Now().UTC()

	updateQuery := `
		UPDATE trading_state
		SET daily_loss = $1, daily_profit = $2, daily_trades = $3, daily_wins = $4,
			total_loss = $5, total_profit = $6, total_trades = $7, total_wins = $8,
			is_circuit_broken = $9, circuit_broken_at = $10, circuit_broken_reason = $11,
			is_executing = $12, current_trade_id = $13, executing_count = $14,
			partial_trades = $15, partial_estimated_loss = $16, partial_estimated_profit = $17,
			partial_trade_amount = $18, last_trade_at = $19, last_daily_reset = $20, updated_at = $21
		WHERE id = 1`

	_, err = tx.ExecContext(ctx, updateQuery,
		state.DailyLoss,
		state.DailyProfit,
		state.DailyTrades,
		state.DailyWins,
		state.TotalLoss,
		state.TotalProfit,
		state.TotalTrades,
		state.TotalWins,
		state.IsCircuitBroken,
		state.CircuitBrokenAt,
		state.CircuitBrokenReason,
		state.IsExecuting,
		state.CurrentTradeID,
		state.ExecutingCount,
		state.PartialTrades,
		state.PartialEstimatedLoss,
		state.PartialEstimatedProfit,
		state.PartialTradeAmount,
		state.LastTradeAt,
		state.LastDailyReset,
		state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return state, nil
}

// ResetDailyIfBefore обнуляет дневные счетчики если последний сброс
// был раньше dayStart (начало текущего UTC-дня)
//
// Одиночный UPDATE с условием - атомарный compare-and-set, безопасен
// при конкурентных вызовах на границе суток. Возвращает true если
// сброс произошел, false если день уже актуален.
func (r *StateRepository) ResetDailyIfBefore(ctx context.Context, dayStart, now time.Time) (bool, error) {
	query := `
		UPDATE trading_state
		SET daily_loss = 0, daily_profit = 0, daily_trades = 0, daily_wins = 0,
			last_daily_reset = $1, updated_at = $1
		WHERE id = 1 AND last_daily_reset < $2`

	result, err := r.db.ExecContext(ctx, query, now, dayStart)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// createDefault создает запись состояния с нулевыми счетчиками
func (r *StateRepository) createDefault() (*models.TradingState, error) {
	state := defaultTradingState()

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := insertState(context.Background(), tx, state); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return state, nil
}

// insertState вставляет строку состояния (ON CONFLICT DO NOTHING - гонка
// двух инициализаций безвредна)
func insertState(ctx context.Context, tx *sql.Tx, state *models.TradingState) error {
	query := `
		INSERT INTO trading_state (` + stateColumns + `)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (id) DO NOTHING`

	_, err := tx.ExecContext(ctx, query,
		state.DailyLoss,
		state.DailyProfit,
		state.DailyTrades,
		state.DailyWins,
		state.TotalLoss,
		state.TotalProfit,
		state.TotalTrades,
		state.TotalWins,
		state.IsCircuitBroken,
		state.CircuitBrokenAt,
		state.CircuitBrokenReason,
		state.IsExecuting,
		state.CurrentTradeID,
		state.ExecutingCount,
		state.PartialTrades,
		state.PartialEstimatedLoss,
		state.PartialEstimatedProfit,
		state.PartialTradeAmount,
		state.LastTradeAt,
		state.LastDailyReset,
		state.UpdatedAt,
	)
	return err
}

// defaultTradingState возвращает нулевое состояние
func defaultTradingState() *models.TradingState {
	now := time.Now().UTC()
	return &models.TradingState{
		ID:             1,
		LastDailyReset: now,
		UpdatedAt:      now,
	}
}

// isRetryableTxError возвращает true для конфликтов, которые решаются повтором
func isRetryableTxError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
