package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"triarb/internal/models"
	"triarb/pkg/ratelimit"
	"triarb/pkg/utils"
)

// resolver.go - разбор зависших позиций (PARTIAL → RESOLVED)
//
// Резолюция по требованию оператора: продать зависшую валюту обратно
// в USDT по рынку, зафиксировать фактический результат и учесть его
// в счётчиках. Запросы курса и продажи идут через rate limiter, чтобы
// ручные резолюции не выедали лимиты API у живой торговли.

// Ошибки резолюции
var (
	ErrNotPartial        = errors.New("trade is not awaiting resolution")
	ErrResolveSellFailed = errors.New("resolution sell failed")
)

// ResolutionPreview - расчет резолюции без побочных эффектов
type ResolutionPreview struct {
	TradeID           string  `json:"trade_id"`
	HeldCurrency      string  `json:"held_currency"`
	HeldAmount        float64 `json:"held_amount"`
	CurrentRate       float64 `json:"current_rate"`
	EstimatedProceeds float64 `json:"estimated_proceeds"`
	EstimatedPnl      float64 `json:"estimated_pnl"`
}

// PartialResolver закрывает зависшие позиции компенсирующей продажей
type PartialResolver struct {
	trades   TradeStore
	states   StateStore
	configs  ConfigStore
	executor Executor
	limiter  *ratelimit.RateLimiter
	metrics  *Metrics
	hub      Broadcaster
	logger   *zap.Logger

	mu sync.Mutex // резолюции строго по одной
}

// NewPartialResolver создает новый resolver
func NewPartialResolver(trades TradeStore, states StateStore, configs ConfigStore, executor Executor, limiter *ratelimit.RateLimiter, metrics *Metrics, hub Broadcaster, logger *zap.Logger) *PartialResolver {
	return &PartialResolver{
		trades:   trades,
		states:   states,
		configs:  configs,
		executor: executor,
		limiter:  limiter,
		metrics:  metrics,
		hub:      hub,
		logger:   logger,
	}
}

// PreviewResolve считает ожидаемый результат резолюции по текущему
// курсу. Ничего не продаёт и не меняет.
func (r *PartialResolver) PreviewResolve(ctx context.Context, tradeID string) (*ResolutionPreview, error) {
	trade, err := r.trades.GetByID(tradeID)
	if err != nil {
		return nil, err
	}
	if !NeedsResolution(trade.Status) {
		return nil, fmt.Errorf("%w: trade %s is %s", ErrNotPartial, tradeID, trade.Status)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	rate, err := r.executor.GetRate(ctx, trade.HeldCurrency, "USDT")
	if err != nil {
		return nil, fmt.Errorf("get rate %s/USDT: %w", trade.HeldCurrency, err)
	}

	proceeds := trade.HeldAmount * rate
	return &ResolutionPreview{
		TradeID:           tradeID,
		HeldCurrency:      trade.HeldCurrency,
		HeldAmount:        trade.HeldAmount,
		CurrentRate:       rate,
		EstimatedProceeds: proceeds,
		EstimatedPnl:      proceeds - trade.AmountIn,
	}, nil
}

// Resolve продаёт зависшую позицию и переводит сделку в RESOLVED.
//
// Если продажа не прошла, сделка остаётся PARTIAL и резолюцию можно
// повторить. Повторная резолюция уже закрытой сделки отсекается
// условным UPDATE в хранилище.
func (r *PartialResolver) Resolve(ctx context.Context, tradeID string) (*models.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trade, err := r.trades.GetByID(tradeID)
	if err != nil {
		return nil, err
	}
	if !NeedsResolution(trade.Status) {
		return nil, fmt.Errorf("%w: trade %s is %s", ErrNotPartial, tradeID, trade.Status)
	}

	cfg, err := r.configs.Get()
	if err != nil {
		return nil, fmt.Errorf("load trading config: %w", err)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	sell, err := r.executor.MarketSell(ctx, MarketSellRequest{
		TradeID:      tradeID,
		FromCurrency: trade.HeldCurrency,
		ToCurrency:   "USDT",
		Amount:       trade.HeldAmount,
		TimeoutSec:   cfg.OrderTimeoutSec,
	})
	if err != nil {
		r.logger.Error("resolution sell failed, trade stays partial",
			zap.String("trade_id", tradeID),
			zap.String("held_currency", trade.HeldCurrency),
			zap.Error(err))
		r.metrics.ResolutionsTotal.WithLabelValues("sell_failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrResolveSellFailed, err)
	}

	now := time.Now().UTC()
	pnl := sell.Proceeds - trade.AmountIn
	pct := 0.0
	if trade.AmountIn > 0 {
		pct = pnl / trade.AmountIn
	}

	if err := r.trades.SetResolution(tradeID, now, sell.Proceeds, sell.OrderRef, pnl, pct); err != nil {
		// Продажа прошла, а запись нет: оставляем разбор оператору,
		// деньги уже на балансе
		return nil, fmt.Errorf("record resolution for %s: %w", tradeID, err)
	}

	trade.Status = models.TradeStatusResolved
	trade.ResolvedAt = &now
	trade.ResolvedAmountUSD = &sell.Proceeds
	trade.ResolutionTradeID = sell.OrderRef
	trade.ProfitLoss = &pnl
	trade.ProfitLossPct = &pct

	if _, err := r.states.ResetDailyIfBefore(ctx, utils.GetDayStartFrom(now), now); err != nil {
		r.logger.Error("daily reset check failed", zap.Error(err))
	}

	estimate := trade.HeldValueUSD - trade.AmountIn
	tripped := false
	state, err := r.states.UpdateAtomic(ctx, func(s *models.TradingState) error {
		settleCounters(s, pnl, pnl >= 0)
		if s.PartialTrades > 0 {
			s.PartialTrades--
		}
		s.PartialTradeAmount = utils.ClampNonNegative(s.PartialTradeAmount - trade.AmountIn)
		if estimate >= 0 {
			s.PartialEstimatedProfit = utils.ClampNonNegative(s.PartialEstimatedProfit - estimate)
		} else {
			s.PartialEstimatedLoss = utils.ClampNonNegative(s.PartialEstimatedLoss + estimate)
		}
		tripped = EvaluateCircuitBreaker(s, cfg, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fold resolution %s into state: %w", tradeID, err)
	}

	result := "recovered"
	if pnl < 0 {
		result = "loss"
	}
	r.metrics.ResolutionsTotal.WithLabelValues(result).Inc()
	r.metrics.ObserveState(state.IsCircuitBroken, executingFrom(state), state.PartialTrades, state.DailyProfit-state.DailyLoss)

	r.hub.BroadcastTradeUpdate(trade)
	r.hub.BroadcastStateUpdate(state)
	if tripped {
		r.hub.BroadcastCircuitBreaker(state)
	}

	r.logger.Info("partial trade resolved",
		zap.String("trade_id", tradeID),
		zap.Float64("proceeds", sell.Proceeds),
		zap.Float64("pnl", pnl))
	return trade, nil
}
