package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"triarb/pkg/utils"
)

// reset.go - дневной сброс счётчиков на границе UTC-суток
//
// Сброс обнуляет только дневные счётчики; кумулятивные, rollup
// зависших позиций и circuit breaker не трогает. Идемпотентность
// обеспечивает условный UPDATE в хранилище: при гонке тикера и
// терминальной свертки сброс применится ровно один раз.

// DailyResetScheduler следит за границей суток
type DailyResetScheduler struct {
	states   StateStore
	hub      Broadcaster
	logger   *zap.Logger
	interval time.Duration
}

// NewDailyResetScheduler создает новый планировщик дневного сброса
func NewDailyResetScheduler(states StateStore, hub Broadcaster, logger *zap.Logger) *DailyResetScheduler {
	return &DailyResetScheduler{
		states:   states,
		hub:      hub,
		logger:   logger,
		interval: time.Minute,
	}
}

// SetCheckInterval задает частоту проверки границы суток
func (d *DailyResetScheduler) SetCheckInterval(interval time.Duration) {
	if interval > 0 {
		d.interval = interval
	}
}

// MaybeResetDaily выполняет сброс если последний был до начала
// текущих UTC-суток. Возвращает true если сброс применился именно
// в этом вызове.
func (d *DailyResetScheduler) MaybeResetDaily(ctx context.Context) (bool, error) {
	now := time.Now().UTC()
	reset, err := d.states.ResetDailyIfBefore(ctx, utils.GetDayStartFrom(now), now)
	if err != nil {
		return false, err
	}
	if reset {
		d.logger.Info("daily counters reset", zap.Time("day_start", utils.GetDayStartFrom(now)))
		if state, err := d.states.Get(); err == nil {
			d.hub.BroadcastStateUpdate(state)
		}
	}
	return reset, nil
}

// Run крутит проверку границы суток до отмены контекста
func (d *DailyResetScheduler) Run(ctx context.Context) {
	// Догоняем пропущенный сброс сразу после старта
	if _, err := d.MaybeResetDaily(ctx); err != nil {
		d.logger.Error("startup daily reset check failed", zap.Error(err))
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.MaybeResetDaily(ctx); err != nil {
				d.logger.Error("daily reset check failed", zap.Error(err))
			}
		}
	}
}
