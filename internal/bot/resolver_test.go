package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"triarb/internal/models"
	"triarb/pkg/ratelimit"
)

type resolverFixture struct {
	r      *PartialResolver
	trades *mockTradeStore
	states *mockStateStore
	exec   *fakeExecutor
	hub    *fakeHub
}

func newResolverFixture() *resolverFixture {
	trades := newMockTradeStore()
	states := newMockStateStore()
	configs := newMockConfigStore()
	exec := newFakeExecutor()
	hub := newFakeHub()
	limiter := ratelimit.NewRateLimiter(100, 100)
	r := NewPartialResolver(trades, states, configs, exec, limiter, testMetrics(), hub, zap.NewNop())
	return &resolverFixture{r: r, trades: trades, states: states, exec: exec, hub: hub}
}

// seedPartialTrade создает зависшую сделку: 10 USDT вошло, 0.0001 BTC
// застряло, снимок стоимости 9.6 USDT
func (f *resolverFixture) seedPartialTrade(t *testing.T) *models.Trade {
	t.Helper()
	started := time.Now().UTC().Add(-time.Hour)
	completed := started.Add(2 * time.Second)
	trade := &models.Trade{
		TradeID:      "partial-1",
		Path:         []string{"USDT", "BTC", "ETH", "USDT"},
		Legs:         3,
		AmountIn:     10.0,
		Status:       models.TradeStatusPartial,
		CurrentLeg:   2,
		ErrorMessage: "order rejected",
		HeldCurrency: "BTC",
		HeldAmount:   0.0001,
		HeldValueUSD: 9.6,
		StartedAt:    started,
		CompletedAt:  &completed,
	}
	if err := f.trades.Create(trade); err != nil {
		t.Fatalf("seed partial: %v", err)
	}
	f.states.state.PartialTrades = 1
	f.states.state.PartialTradeAmount = 10.0
	f.states.state.PartialEstimatedLoss = 0.4
	return trade
}

func TestPreviewResolve(t *testing.T) {
	f := newResolverFixture()
	trade := f.seedPartialTrade(t)
	f.exec.rates["BTC/USDT"] = 98000

	preview, err := f.r.PreviewResolve(context.Background(), trade.TradeID)
	if err != nil {
		t.Fatalf("PreviewResolve: %v", err)
	}
	if preview.CurrentRate != 98000 {
		t.Errorf("CurrentRate = %v, want 98000", preview.CurrentRate)
	}
	if preview.EstimatedProceeds < 9.79 || preview.EstimatedProceeds > 9.81 {
		t.Errorf("EstimatedProceeds = %v, want 9.8", preview.EstimatedProceeds)
	}
	if preview.EstimatedPnl > -0.19 || preview.EstimatedPnl < -0.21 {
		t.Errorf("EstimatedPnl = %v, want -0.2", preview.EstimatedPnl)
	}

	// Предпросмотр без побочных эффектов
	got, _ := f.trades.GetByID(trade.TradeID)
	if got.Status != models.TradeStatusPartial {
		t.Error("предпросмотр изменил статус сделки")
	}
	if len(f.exec.sells) != 0 {
		t.Error("предпросмотр разместил продажу")
	}
}

func TestPreviewResolveNotPartial(t *testing.T) {
	f := newResolverFixture()
	trade := f.seedPartialTrade(t)
	trade.Status = models.TradeStatusCompleted
	_ = f.trades.Update(trade)

	_, err := f.r.PreviewResolve(context.Background(), trade.TradeID)
	if !errors.Is(err, ErrNotPartial) {
		t.Fatalf("error = %v, want ErrNotPartial", err)
	}
}

func TestResolveSuccess(t *testing.T) {
	f := newResolverFixture()
	trade := f.seedPartialTrade(t)
	// Вернулось 9.80 USDT против входа 10.00: убыток 0.20
	f.exec.sellResult = &SellResult{Proceeds: 9.80, OrderRef: "sell-ord-1"}

	resolved, err := f.r.Resolve(context.Background(), trade.TradeID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Status != models.TradeStatusResolved {
		t.Fatalf("Status = %s, want RESOLVED", resolved.Status)
	}
	if resolved.ProfitLoss == nil || *resolved.ProfitLoss > -0.19 || *resolved.ProfitLoss < -0.21 {
		t.Errorf("ProfitLoss = %v, want -0.2", resolved.ProfitLoss)
	}
	if resolved.ResolvedAmountUSD == nil || *resolved.ResolvedAmountUSD != 9.80 {
		t.Errorf("ResolvedAmountUSD = %v, want 9.8", resolved.ResolvedAmountUSD)
	}
	if resolved.ResolutionTradeID != "sell-ord-1" {
		t.Errorf("ResolutionTradeID = %q", resolved.ResolutionTradeID)
	}

	if len(f.exec.sells) != 1 {
		t.Fatalf("продаж = %d, want 1", len(f.exec.sells))
	}
	sell := f.exec.sells[0]
	if sell.FromCurrency != "BTC" || sell.ToCurrency != "USDT" || sell.Amount != 0.0001 {
		t.Errorf("продажа = %+v", sell)
	}

	// Реализованный убыток лёг в счётчики, rollup обнулился
	s := f.states.snapshot()
	if s.DailyTrades != 1 || s.TotalTrades != 1 || s.DailyWins != 0 {
		t.Errorf("счётчики = %d/%d wins %d", s.DailyTrades, s.TotalTrades, s.DailyWins)
	}
	if s.DailyLoss < 0.19 || s.DailyLoss > 0.21 {
		t.Errorf("DailyLoss = %v, want 0.2", s.DailyLoss)
	}
	if s.PartialTrades != 0 || s.PartialTradeAmount != 0 {
		t.Errorf("rollup не обнулен: %d на %v", s.PartialTrades, s.PartialTradeAmount)
	}
	if s.PartialEstimatedLoss != 0 {
		t.Errorf("PartialEstimatedLoss = %v, want 0", s.PartialEstimatedLoss)
	}

	got, _ := f.trades.GetByID(trade.TradeID)
	if got.Status != models.TradeStatusResolved {
		t.Error("резолюция не записана в хранилище")
	}
}

func TestResolveSellFailureKeepsPartial(t *testing.T) {
	f := newResolverFixture()
	trade := f.seedPartialTrade(t)
	f.exec.sellErr = errors.New("market closed")

	_, err := f.r.Resolve(context.Background(), trade.TradeID)
	if !errors.Is(err, ErrResolveSellFailed) {
		t.Fatalf("error = %v, want ErrResolveSellFailed", err)
	}

	// Сделка осталась PARTIAL, резолюцию можно повторить
	got, _ := f.trades.GetByID(trade.TradeID)
	if got.Status != models.TradeStatusPartial {
		t.Fatalf("Status = %s, want PARTIAL", got.Status)
	}
	s := f.states.snapshot()
	if s.PartialTrades != 1 || s.DailyTrades != 0 {
		t.Errorf("сбой продажи изменил учёт: partial %d daily %d", s.PartialTrades, s.DailyTrades)
	}

	// Повтор после восстановления рынка
	f.exec.sellErr = nil
	f.exec.sellResult = &SellResult{Proceeds: 9.7, OrderRef: "sell-ord-2"}
	if _, err := f.r.Resolve(context.Background(), trade.TradeID); err != nil {
		t.Fatalf("повторная резолюция: %v", err)
	}
}

func TestResolveNotPartial(t *testing.T) {
	f := newResolverFixture()
	trade := f.seedPartialTrade(t)
	f.exec.sellResult = &SellResult{Proceeds: 9.8, OrderRef: "sell-ord-1"}

	if _, err := f.r.Resolve(context.Background(), trade.TradeID); err != nil {
		t.Fatalf("первая резолюция: %v", err)
	}
	// Вторая резолюция той же сделки отсекается
	_, err := f.r.Resolve(context.Background(), trade.TradeID)
	if !errors.Is(err, ErrNotPartial) {
		t.Fatalf("error = %v, want ErrNotPartial", err)
	}
	if len(f.exec.sells) != 1 {
		t.Errorf("продаж = %d, want 1", len(f.exec.sells))
	}
}

func TestResolveRecoveredAboveEntry(t *testing.T) {
	f := newResolverFixture()
	trade := f.seedPartialTrade(t)
	f.states.state.PartialEstimatedLoss = 0.4
	f.exec.sellResult = &SellResult{Proceeds: 10.3, OrderRef: "sell-ord-3"}

	resolved, err := f.r.Resolve(context.Background(), trade.TradeID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if *resolved.ProfitLoss < 0.29 || *resolved.ProfitLoss > 0.31 {
		t.Errorf("ProfitLoss = %v, want 0.3", *resolved.ProfitLoss)
	}
	s := f.states.snapshot()
	if s.DailyWins != 1 {
		t.Errorf("DailyWins = %d, want 1", s.DailyWins)
	}
	if s.DailyProfit < 0.29 || s.DailyProfit > 0.31 {
		t.Errorf("DailyProfit = %v, want 0.3", s.DailyProfit)
	}
}
