package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"triarb/internal/models"
)

// engine.go - оркестратор торгового ядра
//
// Engine связывает компоненты: принимает возможности от сканера,
// прогоняет их через проверку доходности и допуск, гоняет ордера
// через executor и раздаёт его асинхронные результаты
// lifecycle-менеджеру. Плюс операторские команды.

// ErrConfirmationRequired возвращается для разрушительных команд без подтверждения
var ErrConfirmationRequired = errors.New("confirmation required")

// Engine - оркестратор ядра
type Engine struct {
	admission *AdmissionController
	lifecycle *LifecycleManager
	scheduler *DailyResetScheduler
	executor  Executor
	states    StateStore
	configs   ConfigStore
	opps      OpportunityStore
	fees      FeeStore
	metrics   *Metrics
	hub       Broadcaster
	logger    *zap.Logger
}

// NewEngine создает новый engine
func NewEngine(admission *AdmissionController, lifecycle *LifecycleManager, scheduler *DailyResetScheduler, executor Executor, states StateStore, configs ConfigStore, opps OpportunityStore, fees FeeStore, metrics *Metrics, hub Broadcaster, logger *zap.Logger) *Engine {
	return &Engine{
		admission: admission,
		lifecycle: lifecycle,
		scheduler: scheduler,
		executor:  executor,
		states:    states,
		configs:   configs,
		opps:      opps,
		fees:      fees,
		metrics:   metrics,
		hub:       hub,
		logger:    logger,
	}
}

// Run крутит главный цикл до отмены контекста: дневной сброс в фоне,
// результаты ног — в этой горутине, строго по порядку получения.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("engine started")
	go e.scheduler.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return
		case res, ok := <-e.executor.Results():
			if !ok {
				e.logger.Warn("executor results channel closed")
				return
			}
			e.handleLegResult(ctx, res)
		}
	}
}

// handleLegResult передаёт результат lifecycle-менеджеру и исполняет
// его директиву
func (e *Engine) handleLegResult(ctx context.Context, res LegResult) {
	directive, err := e.lifecycle.OnLegResult(ctx, res)
	if err != nil {
		e.logger.Error("leg result handling failed",
			zap.String("trade_id", res.TradeID),
			zap.Int("leg", res.Leg),
			zap.Error(err))
		return
	}
	if directive == nil || directive.Order == nil {
		return
	}

	order := *directive.Order
	if err := e.executor.PlaceOrder(ctx, order); err != nil {
		e.logger.Error("order placement refused",
			zap.String("trade_id", order.TradeID),
			zap.Int("leg", order.Leg),
			zap.Error(err))
		if failErr := e.lifecycle.OnPlacementError(ctx, order.TradeID, order.Leg, err); failErr != nil {
			e.logger.Error("failed to finalize trade after placement error",
				zap.String("trade_id", order.TradeID),
				zap.Error(failErr))
		}
	}
}

// HandleOpportunity проводит возможность через проверку доходности и
// допуск. Возвращает созданную сделку либо nil если возможность
// пропущена или отклонена.
func (e *Engine) HandleOpportunity(ctx context.Context, opp *models.Opportunity) (*models.Trade, error) {
	cfg, err := e.configs.Get()
	if err != nil {
		return nil, fmt.Errorf("load trading config: %w", err)
	}
	fees, err := e.fees.Get()
	if err != nil {
		return nil, fmt.Errorf("load fee parameters: %w", err)
	}

	decision := ShouldExecute(opp, cfg, fees)
	if !decision.Execute {
		e.metrics.OpportunitiesTotal.WithLabelValues("skipped").Inc()
		if err := e.opps.UpdateStatus(opp.OpportunityID, models.OpportunityStatusSkipped, decision.Reason, ""); err != nil {
			e.logger.Error("failed to mark opportunity skipped",
				zap.String("opportunity_id", opp.OpportunityID),
				zap.Error(err))
		}
		return nil, nil
	}

	trade, err := e.admission.TryAdmit(ctx, opp)
	if err != nil {
		reason := rejectReason(err)
		if reason == "" {
			return nil, fmt.Errorf("admit opportunity %s: %w", opp.OpportunityID, err)
		}
		e.metrics.AdmissionRejects.WithLabelValues(reason).Inc()
		e.metrics.OpportunitiesTotal.WithLabelValues("missed").Inc()
		if uerr := e.opps.UpdateStatus(opp.OpportunityID, models.OpportunityStatusMissed, reason, ""); uerr != nil {
			e.logger.Error("failed to mark opportunity missed",
				zap.String("opportunity_id", opp.OpportunityID),
				zap.Error(uerr))
		}
		return nil, nil
	}

	e.metrics.OpportunitiesTotal.WithLabelValues("executed").Inc()
	if err := e.opps.UpdateStatus(opp.OpportunityID, models.OpportunityStatusExecuted, "", trade.TradeID); err != nil {
		e.logger.Error("failed to mark opportunity executed",
			zap.String("opportunity_id", opp.OpportunityID),
			zap.Error(err))
	}

	order := e.lifecycle.FirstOrder(trade, cfg)
	if err := e.executor.PlaceOrder(ctx, order); err != nil {
		e.logger.Error("first leg placement refused",
			zap.String("trade_id", trade.TradeID),
			zap.Error(err))
		if failErr := e.lifecycle.OnPlacementError(ctx, trade.TradeID, 1, err); failErr != nil {
			e.logger.Error("failed to finalize trade after placement error",
				zap.String("trade_id", trade.TradeID),
				zap.Error(failErr))
		}
		return trade, nil
	}
	if err := e.lifecycle.OnExecutionStarted(trade); err != nil {
		return trade, err
	}
	return trade, nil
}

// rejectReason маппит ошибку допуска в метку причины; пустая строка
// для неожиданных ошибок
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrTradingDisabled):
		return RejectReasonDisabled
	case errors.Is(err, ErrCircuitBroken):
		return RejectReasonBreaker
	case errors.Is(err, ErrCapacityExhausted):
		return RejectReasonCapacity
	}
	return ""
}

// ============================================================
// Операторские команды
// ============================================================

// EnableTrading включает торговлю. Настройки с этого момента заморожены.
func (e *Engine) EnableTrading(ctx context.Context) error {
	// Догоняем дневной сброс до включения, чтобы не торговать
	// под вчерашними счётчиками
	if _, err := e.scheduler.MaybeResetDaily(ctx); err != nil {
		e.logger.Error("daily reset check failed", zap.Error(err))
	}
	if err := e.configs.SetEnabled(true); err != nil {
		return fmt.Errorf("enable trading: %w", err)
	}
	e.logger.Info("trading enabled")
	return nil
}

// DisableTrading выключает допуск новых сделок. Уже исполняющиеся
// сделки доводятся до терминального статуса. Причина остановки
// попадает в журнал.
func (e *Engine) DisableTrading(ctx context.Context, reason string) error {
	if err := e.configs.SetEnabled(false); err != nil {
		return fmt.Errorf("disable trading: %w", err)
	}
	if reason != "" {
		e.logger.Info("trading disabled", zap.String("reason", reason))
	} else {
		e.logger.Info("trading disabled")
	}
	return nil
}

// ResetBreaker снимает защёлку circuit breaker'а. Счётчики потерь
// не трогает: если лимит всё ещё превышен, breaker сработает снова.
func (e *Engine) ResetBreaker(ctx context.Context) (*models.TradingState, error) {
	state, err := e.states.UpdateAtomic(ctx, func(s *models.TradingState) error {
		ResetCircuitBreaker(s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reset circuit breaker: %w", err)
	}
	e.metrics.ObserveState(state.IsCircuitBroken, executingFrom(state), state.PartialTrades, state.DailyProfit-state.DailyLoss)
	e.hub.BroadcastStateUpdate(state)
	e.logger.Info("circuit breaker reset by operator")
	return state, nil
}

// ResetDaily принудительно обнуляет дневные счётчики, не дожидаясь
// границы суток
func (e *Engine) ResetDaily(ctx context.Context) (*models.TradingState, error) {
	now := time.Now().UTC()
	state, err := e.states.UpdateAtomic(ctx, func(s *models.TradingState) error {
		zeroDailyCounters(s, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reset daily counters: %w", err)
	}
	e.metrics.ObserveState(state.IsCircuitBroken, executingFrom(state), state.PartialTrades, 0)
	e.hub.BroadcastStateUpdate(state)
	e.logger.Info("daily counters reset by operator")
	return state, nil
}

// ResetAll обнуляет дневные и кумулятивные счётчики. Rollup зависших
// позиций не трогает — он зеркалит живые PARTIAL-строки и обнуляется
// только их резолюцией. Защёлка breaker'а тоже остаётся: её снимает
// отдельная команда.
func (e *Engine) ResetAll(ctx context.Context, confirm bool) (*models.TradingState, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	now := time.Now().UTC()
	state, err := e.states.UpdateAtomic(ctx, func(s *models.TradingState) error {
		zeroDailyCounters(s, now)
		s.TotalLoss = 0
		s.TotalProfit = 0
		s.TotalTrades = 0
		s.TotalWins = 0
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reset all counters: %w", err)
	}
	e.metrics.ObserveState(state.IsCircuitBroken, executingFrom(state), state.PartialTrades, 0)
	e.hub.BroadcastStateUpdate(state)
	e.logger.Warn("all counters reset by operator")
	return state, nil
}

// zeroDailyCounters обнуляет дневную часть состояния
func zeroDailyCounters(s *models.TradingState, now time.Time) {
	s.DailyLoss = 0
	s.DailyProfit = 0
	s.DailyTrades = 0
	s.DailyWins = 0
	s.LastDailyReset = now
}
