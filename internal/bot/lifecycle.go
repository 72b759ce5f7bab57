package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"triarb/internal/models"
	"triarb/internal/repository"
	"triarb/pkg/utils"
)

// lifecycle.go - проведение сделки по state machine
//
// PENDING → EXECUTING → {COMPLETED, PARTIAL, FAILED}.
// Менеджер реагирует на асинхронные результаты ног и возвращает
// engine'у директиву: повторить ногу, разместить следующую или ничего.
// Терминальная свертка (счётчики + освобождение резерва + breaker)
// выполняется одной атомарной мутацией состояния.

// ErrInvalidTransition возвращается при попытке недопустимого перехода статуса
var ErrInvalidTransition = errors.New("invalid trade status transition")

// Directive сообщает engine'у следующий шаг исполнения
type Directive struct {
	Order *OrderRequest // ордер к размещению; nil если размещать нечего
	Retry bool          // true если Order — повтор той же ноги
}

// LifecycleManager проводит сделки от допуска до терминального статуса
type LifecycleManager struct {
	trades   TradeStore
	states   StateStore
	configs  ConfigStore
	executor Executor
	metrics  *Metrics
	hub      Broadcaster
	logger   *zap.Logger

	mu      sync.Mutex
	retries map[string]int // "tradeID:leg" → выполнено повторов
}

// NewLifecycleManager создает новый менеджер жизненного цикла
func NewLifecycleManager(trades TradeStore, states StateStore, configs ConfigStore, executor Executor, metrics *Metrics, hub Broadcaster, logger *zap.Logger) *LifecycleManager {
	return &LifecycleManager{
		trades:   trades,
		states:   states,
		configs:  configs,
		executor: executor,
		metrics:  metrics,
		hub:      hub,
		logger:   logger,
		retries:  make(map[string]int),
	}
}

// FirstOrder строит ордер первой ноги для только что допущенной сделки
func (m *LifecycleManager) FirstOrder(trade *models.Trade, cfg *models.TradingConfig) OrderRequest {
	return m.legOrder(trade, cfg, 1, trade.AmountIn)
}

// legOrder строит ордер ноги leg на вход amount
func (m *LifecycleManager) legOrder(trade *models.Trade, cfg *models.TradingConfig, leg int, amount float64) OrderRequest {
	return OrderRequest{
		TradeID:      trade.TradeID,
		Leg:          leg,
		FromCurrency: trade.Path[leg-1],
		ToCurrency:   trade.Path[leg],
		Amount:       amount,
		OrderType:    "market",
		TimeoutSec:   cfg.OrderTimeoutSec,
	}
}

// OnExecutionStarted переводит сделку PENDING → EXECUTING.
// Вызывается когда executor принял ордер первой ноги.
func (m *LifecycleManager) OnExecutionStarted(trade *models.Trade) error {
	if !CanTransition(trade.Status, models.TradeStatusExecuting) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, trade.Status, models.TradeStatusExecuting)
	}
	trade.Status = models.TradeStatusExecuting
	trade.CurrentLeg = 1
	if err := m.trades.Update(trade); err != nil {
		return fmt.Errorf("mark trade executing: %w", err)
	}
	m.hub.BroadcastTradeUpdate(trade)
	return nil
}

// OnLegResult обрабатывает асинхронный результат ноги.
//
// Устаревшие результаты (сделка не найдена, уже терминальна или
// нога не совпадает с текущей) молча отбрасываются: executor может
// прислать дубликат после таймаута, reconnect'а или рестарта.
func (m *LifecycleManager) OnLegResult(ctx context.Context, res LegResult) (*Directive, error) {
	trade, err := m.trades.GetByID(res.TradeID)
	if err != nil {
		if errors.Is(err, repository.ErrTradeNotFound) {
			m.logger.Warn("leg result for unknown trade dropped",
				zap.String("trade_id", res.TradeID),
				zap.Int("leg", res.Leg))
			return nil, nil
		}
		return nil, fmt.Errorf("load trade %s: %w", res.TradeID, err)
	}
	if trade.IsTerminal() {
		m.logger.Warn("leg result for terminal trade dropped",
			zap.String("trade_id", res.TradeID),
			zap.String("status", trade.Status),
			zap.Int("leg", res.Leg))
		return nil, nil
	}
	// Дубликат после reconnect: сделка уже на другой ноге. Принять его —
	// значит разместить второй ордер на живые деньги.
	if res.Leg != trade.CurrentLeg {
		m.logger.Warn("leg result out of order dropped",
			zap.String("trade_id", res.TradeID),
			zap.Int("result_leg", res.Leg),
			zap.Int("current_leg", trade.CurrentLeg))
		return nil, nil
	}

	cfg, err := m.configs.Get()
	if err != nil {
		return nil, fmt.Errorf("load trading config: %w", err)
	}

	trade.LegFills = append(trade.LegFills, legFillFrom(res))
	m.metrics.LegLatency.Observe(float64(res.LatencyMs) / 1000)

	if res.Success {
		return m.onLegFilled(ctx, trade, cfg, res)
	}
	return m.onLegFailed(ctx, trade, cfg, res)
}

// onLegFilled продвигает сделку после успешной ноги
func (m *LifecycleManager) onLegFilled(ctx context.Context, trade *models.Trade, cfg *models.TradingConfig, res LegResult) (*Directive, error) {
	m.clearRetries(trade.TradeID, res.Leg)

	if res.Leg < trade.Legs {
		trade.CurrentLeg = res.Leg + 1
		if err := m.trades.Update(trade); err != nil {
			return nil, fmt.Errorf("advance trade %s: %w", trade.TradeID, err)
		}
		m.hub.BroadcastTradeUpdate(trade)
		order := m.legOrder(trade, cfg, trade.CurrentLeg, res.Amount)
		return &Directive{Order: &order}, nil
	}

	// Последняя нога: цикл замкнулся, фиксируем результат
	amountOut := res.Amount
	trade.AmountOut = &amountOut
	pnl := amountOut - trade.AmountIn
	if err := m.finalize(ctx, trade, cfg, models.TradeStatusCompleted, pnl); err != nil {
		return nil, err
	}
	return nil, nil
}

// onLegFailed решает: повтор ноги, FAILED или PARTIAL
func (m *LifecycleManager) onLegFailed(ctx context.Context, trade *models.Trade, cfg *models.TradingConfig, res LegResult) (*Directive, error) {
	if res.Retryable && m.bumpRetries(trade.TradeID, res.Leg) <= cfg.MaxRetriesPerLeg {
		m.metrics.LegRetriesTotal.Inc()
		if err := m.trades.Update(trade); err != nil {
			return nil, fmt.Errorf("record failed fill for %s: %w", trade.TradeID, err)
		}
		m.logger.Info("retrying leg",
			zap.String("trade_id", trade.TradeID),
			zap.Int("leg", res.Leg),
			zap.String("error", res.Error))
		order := m.legOrder(trade, cfg, res.Leg, m.legInput(trade, res.Leg))
		return &Directive{Order: &order, Retry: true}, nil
	}

	trade.ErrorMessage = res.Error
	return nil, m.failAtLeg(ctx, trade, cfg, res.Leg)
}

// OnPlacementError обрабатывает синхронный отказ executor'а принять ордер.
// Исчерпание повторов здесь не участвует: отказ размещения не retryable.
func (m *LifecycleManager) OnPlacementError(ctx context.Context, tradeID string, leg int, placeErr error) error {
	trade, err := m.trades.GetByID(tradeID)
	if err != nil {
		return fmt.Errorf("load trade %s: %w", tradeID, err)
	}
	trade.ErrorMessage = placeErr.Error()
	cfg, err := m.configs.Get()
	if err != nil {
		return fmt.Errorf("load trading config: %w", err)
	}
	return m.failAtLeg(ctx, trade, cfg, leg)
}

// failAtLeg завершает сделку после невосстановимого сбоя ноги leg.
// Сбой первой ноги — FAILED (капитал не тронут), сбой дальше — PARTIAL
// (капитал завис в промежуточной валюте).
func (m *LifecycleManager) failAtLeg(ctx context.Context, trade *models.Trade, cfg *models.TradingConfig, leg int) error {
	if leg <= 1 {
		return m.finalize(ctx, trade, cfg, models.TradeStatusFailed, 0)
	}

	heldCurrency := trade.Path[leg-1]
	heldAmount := m.legInput(trade, leg)
	trade.HeldCurrency = heldCurrency
	trade.HeldAmount = heldAmount
	trade.HeldValueUSD = m.snapshotHeldValue(ctx, trade, heldCurrency, heldAmount)
	return m.finalize(ctx, trade, cfg, models.TradeStatusPartial, 0)
}

// snapshotHeldValue оценивает зависшую позицию в USDT на момент сбоя.
// Если курс недоступен, берём поставленную сумму: лучше консервативная
// оценка, чем нулевая.
func (m *LifecycleManager) snapshotHeldValue(ctx context.Context, trade *models.Trade, currency string, amount float64) float64 {
	if currency == "USDT" {
		return amount
	}
	rate, err := m.executor.GetRate(ctx, currency, "USDT")
	if err != nil {
		m.logger.Warn("held value snapshot fell back to amount_in",
			zap.String("trade_id", trade.TradeID),
			zap.String("currency", currency),
			zap.Error(err))
		return trade.AmountIn
	}
	return amount * rate
}

// finalize выполняет терминальную свертку: статус сделки, счётчики,
// освобождение резерва и оценку circuit breaker'а — одной мутацией.
func (m *LifecycleManager) finalize(ctx context.Context, trade *models.Trade, cfg *models.TradingConfig, status string, pnl float64) error {
	if !CanTransition(trade.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, trade.Status, status)
	}

	now := time.Now().UTC()
	trade.Status = status
	trade.CompletedAt = &now
	trade.TotalExecutionMs = now.Sub(trade.StartedAt).Milliseconds()
	if status != models.TradeStatusPartial {
		pnlCopy := pnl
		pct := 0.0
		if trade.AmountIn > 0 {
			pct = pnl / trade.AmountIn
		}
		trade.ProfitLoss = &pnlCopy
		trade.ProfitLossPct = &pct
	}
	m.clearTradeRetries(trade.TradeID)

	if err := m.trades.Update(trade); err != nil {
		return fmt.Errorf("store terminal trade %s: %w", trade.TradeID, err)
	}

	// Сначала догоняем дневной сброс, чтобы результат лёг в счётчики
	// нового дня, а не вчерашнего
	if _, err := m.states.ResetDailyIfBefore(ctx, utils.GetDayStartFrom(now), now); err != nil {
		m.logger.Error("daily reset check failed", zap.Error(err))
	}

	tripped := false
	state, err := m.states.UpdateAtomic(ctx, func(s *models.TradingState) error {
		releaseReservation(s, trade.TradeID, cfg.ExecutionMode)
		switch status {
		case models.TradeStatusPartial:
			s.PartialTrades++
			s.PartialTradeAmount += trade.AmountIn
			if est := trade.HeldValueUSD - trade.AmountIn; est >= 0 {
				s.PartialEstimatedProfit += est
			} else {
				s.PartialEstimatedLoss += -est
			}
		default:
			settleCounters(s, pnl, status == models.TradeStatusCompleted && pnl >= 0)
		}
		s.LastTradeAt = &now
		tripped = EvaluateCircuitBreaker(s, cfg, now)
		return nil
	})
	if err != nil {
		return fmt.Errorf("fold trade %s into state: %w", trade.TradeID, err)
	}

	m.metrics.TradesTotal.WithLabelValues(resultLabel(status)).Inc()
	m.metrics.ObserveState(state.IsCircuitBroken, executingFrom(state), state.PartialTrades, state.DailyProfit-state.DailyLoss)

	m.hub.BroadcastTradeUpdate(trade)
	m.hub.BroadcastStateUpdate(state)
	if tripped {
		m.logger.Warn("circuit breaker tripped",
			zap.String("reason", state.CircuitBrokenReason),
			zap.Float64("daily_loss", state.DailyLoss),
			zap.Float64("total_loss", state.TotalLoss))
		m.hub.BroadcastCircuitBreaker(state)
	}

	m.logger.Info("trade finalized",
		zap.String("trade_id", trade.TradeID),
		zap.String("status", status),
		zap.Float64("pnl", pnl),
		zap.Int64("execution_ms", trade.TotalExecutionMs))
	return nil
}

// legInput возвращает входную сумму ноги leg: для первой — сумма
// сделки, дальше — выход последней исполненной ноги leg-1.
func (m *LifecycleManager) legInput(trade *models.Trade, leg int) float64 {
	if leg <= 1 {
		return trade.AmountIn
	}
	for i := len(trade.LegFills) - 1; i >= 0; i-- {
		fill := trade.LegFills[i]
		if fill.Leg == leg-1 && fill.ExecutedPrice != nil {
			return fill.Amount
		}
	}
	return trade.AmountIn
}

// settleCounters учитывает реализованный результат в счётчиках.
// Выигрыш — замкнутый цикл с неотрицательным результатом; FAILED
// с нулевым pnl сделкой считается, выигрышем нет.
func settleCounters(s *models.TradingState, pnl float64, won bool) {
	s.DailyTrades++
	s.TotalTrades++
	if won {
		s.DailyWins++
		s.TotalWins++
	}
	if pnl >= 0 {
		s.DailyProfit += pnl
		s.TotalProfit += pnl
	} else {
		s.DailyLoss += -pnl
		s.TotalLoss += -pnl
	}
}

// legFillFrom строит запись LegFill из результата executor'а
func legFillFrom(res LegResult) models.LegFill {
	return models.LegFill{
		Leg:           res.Leg,
		Pair:          res.Pair,
		Side:          res.Side,
		ExpectedPrice: res.ExpectedPrice,
		ExecutedPrice: res.ExecutedPrice,
		Amount:        res.Amount,
		Fee:           res.Fee,
		SlippagePct:   slippagePct(res),
		LatencyMs:     res.LatencyMs,
		OrderRef:      res.OrderRef,
	}
}

// slippagePct возвращает проскальзывание со знаком против направления:
// положительное значение всегда означает ухудшение цены.
func slippagePct(res LegResult) float64 {
	if res.ExecutedPrice == nil {
		return 0
	}
	return utils.SlippagePct(res.Side, res.ExpectedPrice, *res.ExecutedPrice)
}

// executingFrom возвращает число исполняющихся сделок из состояния
func executingFrom(s *models.TradingState) int {
	if s.ExecutingCount > 0 {
		return s.ExecutingCount
	}
	if s.IsExecuting {
		return 1
	}
	return 0
}

func (m *LifecycleManager) bumpRetries(tradeID string, leg int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := retryKey(tradeID, leg)
	m.retries[key]++
	return m.retries[key]
}

func (m *LifecycleManager) clearRetries(tradeID string, leg int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.retries, retryKey(tradeID, leg))
}

func (m *LifecycleManager) clearTradeRetries(tradeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.retries {
		if len(key) > len(tradeID) && key[:len(tradeID)] == tradeID && key[len(tradeID)] == ':' {
			delete(m.retries, key)
		}
	}
}

func retryKey(tradeID string, leg int) string {
	return fmt.Sprintf("%s:%d", tradeID, leg)
}
