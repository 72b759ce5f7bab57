package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"triarb/internal/models"
)

// ============================================================
// ConfigRepository Tests
// ============================================================

var configColumnNames = []string{
	"id", "is_enabled", "trade_amount", "min_profit_threshold", "max_daily_loss", "max_total_loss",
	"execution_mode", "max_parallel_trades", "max_retries_per_leg", "order_timeout_seconds",
	"start_currency_mode", "start_currencies", "max_pairs", "min_volume_24h", "max_cost_min", "updated_at",
}

func configRow(cfg *models.TradingConfig, currenciesJSON string) []driverValue {
	return []driverValue{
		cfg.ID, cfg.IsEnabled, cfg.TradeAmount, cfg.MinProfitThreshold, cfg.MaxDailyLoss, cfg.MaxTotalLoss,
		cfg.ExecutionMode, cfg.MaxParallelTrades, cfg.MaxRetriesPerLeg, cfg.OrderTimeoutSec,
		cfg.StartCurrencyMode, []byte(currenciesJSON), cfg.MaxPairs, cfg.MinVolume24h, cfg.MaxCostMin, cfg.UpdatedAt,
	}
}

func newConfigMock(t *testing.T) (*ConfigRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	return NewConfigRepository(db), mock, func() { db.Close() }
}

func TestConfigRepositoryGet(t *testing.T) {
	repo, mock, closeDB := newConfigMock(t)
	defer closeDB()

	want := DefaultTradingConfig()
	want.TradeAmount = 25.0
	want.StartCurrencies = []string{"USDT", "BTC"}

	mock.ExpectQuery(`SELECT (.+) FROM trading_config`).
		WillReturnRows(sqlmock.NewRows(configColumnNames).AddRow(configRow(want, `["USDT","BTC"]`)...))

	got, err := repo.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TradeAmount != 25.0 {
		t.Errorf("expected trade amount 25.0, got %v", got.TradeAmount)
	}
	if len(got.StartCurrencies) != 2 || got.StartCurrencies[0] != "USDT" {
		t.Errorf("unexpected start currencies: %v", got.StartCurrencies)
	}
}

func TestConfigRepositoryGetCreatesDefault(t *testing.T) {
	repo, mock, closeDB := newConfigMock(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT (.+) FROM trading_config`).
		WillReturnRows(sqlmock.NewRows(configColumnNames))
	mock.ExpectExec(`INSERT INTO trading_config`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cfg, err := repo.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Дефолт консервативный: торговля выключена
	if cfg.IsEnabled {
		t.Error("expected trading disabled by default")
	}
	if cfg.ExecutionMode != models.ExecutionModeSequential {
		t.Errorf("expected sequential mode, got %s", cfg.ExecutionMode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestConfigRepositoryUpdate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, closeDB := newConfigMock(t)
		defer closeDB()

		cfg := DefaultTradingConfig()
		before := cfg.UpdatedAt

		mock.ExpectExec(`UPDATE trading_config`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := repo.Update(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cfg.UpdatedAt.After(before) && !cfg.UpdatedAt.Equal(before) {
			t.Error("expected UpdatedAt refreshed")
		}
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock, closeDB := newConfigMock(t)
		defer closeDB()

		mock.ExpectExec(`UPDATE trading_config`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		if err := repo.Update(DefaultTradingConfig()); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

func TestConfigRepositorySetEnabled(t *testing.T) {
	repo, mock, closeDB := newConfigMock(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE trading_config`).
		WithArgs(true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetEnabled(true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDefaultTradingConfig(t *testing.T) {
	cfg := DefaultTradingConfig()

	if cfg.ID != 1 {
		t.Errorf("expected id 1, got %d", cfg.ID)
	}
	if cfg.IsEnabled {
		t.Error("default config must not enable trading")
	}
	if cfg.TradeAmount <= 0 || cfg.MinProfitThreshold <= 0 {
		t.Errorf("invalid defaults: %+v", cfg)
	}
	if cfg.MaxDailyLoss <= 0 || cfg.MaxTotalLoss < cfg.MaxDailyLoss {
		t.Errorf("loss limits inconsistent: daily %v total %v", cfg.MaxDailyLoss, cfg.MaxTotalLoss)
	}
	if cfg.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt set")
	}
}

// ============================================================
// FeeRepository Tests
// ============================================================

var feeColumnNames = []string{"id", "maker_fee", "taker_fee", "fee_source", "last_fetched_at"}

func TestFeeRepositoryGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()
	repo := NewFeeRepository(db)

	fetched := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM fee_parameters`).
		WillReturnRows(sqlmock.NewRows(feeColumnNames).
			AddRow(1, 0.001, 0.001, models.FeeSourceExchangeAPI, fetched))

	fees, err := repo.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fees.TakerFee != 0.001 || fees.FeeSource != models.FeeSourceExchangeAPI {
		t.Errorf("unexpected fees: %+v", fees)
	}
	if fees.LastFetchedAt == nil || !fees.LastFetchedAt.Equal(fetched) {
		t.Errorf("unexpected last_fetched_at: %v", fees.LastFetchedAt)
	}
}

func TestFeeRepositoryGetCreatesPendingDefault(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()
	repo := NewFeeRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM fee_parameters`).
		WillReturnRows(sqlmock.NewRows(feeColumnNames))
	mock.ExpectExec(`INSERT INTO fee_parameters`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	fees, err := repo.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fees.FeeSource != models.FeeSourcePending {
		t.Errorf("expected pending fee source, got %s", fees.FeeSource)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFeeRepositoryUpdate(t *testing.T) {
	t.Run("success stamps fetch time", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()
		repo := NewFeeRepository(db)

		fees := &models.FeeParameters{ID: 1, MakerFee: 0.001, TakerFee: 0.001, FeeSource: models.FeeSourceManual}

		mock.ExpectExec(`UPDATE fee_parameters`).
			WithArgs(0.001, 0.001, models.FeeSourceManual, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := repo.Update(fees); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fees.LastFetchedAt == nil {
			t.Error("expected LastFetchedAt stamped")
		}
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()
		repo := NewFeeRepository(db)

		mock.ExpectExec(`UPDATE fee_parameters`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Update(&models.FeeParameters{ID: 1})
		if !errors.Is(err, ErrFeesNotFound) {
			t.Errorf("expected ErrFeesNotFound, got %v", err)
		}
	})
}
