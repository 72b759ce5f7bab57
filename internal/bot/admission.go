package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"triarb/internal/models"
	"triarb/pkg/id"
)

// Ошибки допуска. Каждая соответствует конкретной причине отказа,
// вызывающий код различает их через errors.Is.
var (
	ErrTradingDisabled    = errors.New("trading is disabled")
	ErrCircuitBroken      = errors.New("circuit breaker is active")
	ErrCapacityExhausted  = errors.New("execution capacity exhausted")
	ErrInvalidOpportunity = errors.New("opportunity is not executable")
)

// Причины отказа для учёта в opportunity и метриках
const (
	RejectReasonDisabled = "disabled"
	RejectReasonBreaker  = "circuit_broken"
	RejectReasonCapacity = "capacity_exhausted"
)

// AdmissionController решает, может ли возможность стать сделкой.
//
// Проверка и резервирование мощности выполняются одной атомарной
// мутацией TradingState: между проверкой и резервом никакая другая
// горутина не может проскочить.
type AdmissionController struct {
	states  StateStore
	configs ConfigStore
	trades  TradeStore
	logger  *zap.Logger
}

// NewAdmissionController создает новый контроллер допуска
func NewAdmissionController(states StateStore, configs ConfigStore, trades TradeStore, logger *zap.Logger) *AdmissionController {
	return &AdmissionController{
		states:  states,
		configs: configs,
		trades:  trades,
		logger:  logger,
	}
}

// TryAdmit атомарно проверяет условия допуска и резервирует мощность.
//
// Порядок проверок фиксирован: is_enabled → circuit breaker → мощность.
// При успехе создаётся PENDING-сделка и возвращается она же; при любом
// отказе состояние не меняется. Если вставка сделки не удалась после
// резервирования, резерв снимается компенсирующей мутацией.
func (a *AdmissionController) TryAdmit(ctx context.Context, opp *models.Opportunity) (*models.Trade, error) {
	if opp == nil || len(opp.Path) < 2 {
		return nil, ErrInvalidOpportunity
	}

	// Конфиг читается до мутации: пока торговля включена, настройки
	// заблокированы от изменений, поэтому гонки с обновлением нет.
	cfg, err := a.configs.Get()
	if err != nil {
		return nil, fmt.Errorf("load trading config: %w", err)
	}

	tradeID := id.NewTradeID()

	_, err = a.states.UpdateAtomic(ctx, func(s *models.TradingState) error {
		if !cfg.IsEnabled {
			return ErrTradingDisabled
		}
		if s.IsCircuitBroken {
			return ErrCircuitBroken
		}
		switch cfg.ExecutionMode {
		case models.ExecutionModeParallel:
			if s.ExecutingCount >= cfg.MaxParallelTrades {
				return ErrCapacityExhausted
			}
			s.ExecutingCount++
		default:
			if s.IsExecuting {
				return ErrCapacityExhausted
			}
			s.IsExecuting = true
			s.CurrentTradeID = tradeID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	trade := &models.Trade{
		TradeID:              tradeID,
		Path:                 opp.Path,
		Legs:                 opp.Legs,
		AmountIn:             cfg.TradeAmount,
		Status:               models.TradeStatusPending,
		CurrentLeg:           0,
		LegFills:             []models.LegFill{},
		StartedAt:            time.Now().UTC(),
		OpportunityProfitPct: opp.ExpectedProfitPct,
	}

	if err := a.trades.Create(trade); err != nil {
		// Компенсирующее освобождение резерва, иначе мощность течёт
		if relErr := a.release(ctx, tradeID, cfg.ExecutionMode); relErr != nil {
			a.logger.Error("failed to release reservation after create failure",
				zap.String("trade_id", tradeID),
				zap.Error(relErr))
		}
		return nil, fmt.Errorf("create pending trade: %w", err)
	}

	a.logger.Info("trade admitted",
		zap.String("trade_id", tradeID),
		zap.Strings("path", opp.Path),
		zap.Float64("expected_profit_pct", opp.ExpectedProfitPct))

	return trade, nil
}

// release снимает резерв мощности без учёта результата сделки
func (a *AdmissionController) release(ctx context.Context, tradeID, mode string) error {
	_, err := a.states.UpdateAtomic(ctx, func(s *models.TradingState) error {
		releaseReservation(s, tradeID, mode)
		return nil
	})
	return err
}

// releaseReservation снимает резерв внутри уже открытой мутации.
// Используется и контроллером допуска, и терминальной сверткой
// lifecycle-менеджера.
func releaseReservation(s *models.TradingState, tradeID, mode string) {
	if mode == models.ExecutionModeParallel {
		if s.ExecutingCount > 0 {
			s.ExecutingCount--
		}
		return
	}
	s.IsExecuting = false
	if s.CurrentTradeID == tradeID {
		s.CurrentTradeID = ""
	}
}
