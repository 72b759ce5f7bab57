package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"triarb/internal/api"
	"triarb/internal/bot"
	"triarb/internal/config"
	"triarb/internal/executor"
	"triarb/internal/repository"
	"triarb/internal/service"
	"triarb/internal/websocket"
	"triarb/pkg/ratelimit"
	"triarb/pkg/utils"
)

func main() {
	// .env для локального развертывания; в production переменные
	// задаёт окружение
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *utils.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := initDatabase(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("connected to database", zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Репозитории
	tradeRepo := repository.NewTradeRepository(db)
	oppRepo := repository.NewOpportunityRepository(db)
	configRepo := repository.NewConfigRepository(db)
	stateRepo := repository.NewStateRepository(db)
	feeRepo := repository.NewFeeRepository(db)

	// WebSocket hub для real-time обновлений дашборда
	hub := websocket.NewHub(logger.WithComponent("hub").Logger)
	go hub.Run()
	defer hub.Stop()

	// Клиент исполнительного сервиса: ордера по HTTP, результаты
	// ног по WebSocket
	execClient := executor.NewClient(cfg.Bot.ExecutorURL, cfg.Bot.ExecutorWSURL,
		logger.WithComponent("executor").Logger)
	go execClient.Run(ctx)

	// Торговое ядро
	metrics := bot.NewMetrics()
	botLogger := logger.WithComponent("bot").Logger
	admission := bot.NewAdmissionController(stateRepo, configRepo, tradeRepo, botLogger)
	lifecycle := bot.NewLifecycleManager(tradeRepo, stateRepo, configRepo, execClient, metrics, hub, botLogger)
	scheduler := bot.NewDailyResetScheduler(stateRepo, hub, botLogger)
	scheduler.SetCheckInterval(cfg.Bot.ResetCheckInterval)
	limiter := ratelimit.NewRateLimiter(cfg.Bot.ResolverRateLimit, cfg.Bot.ResolverBurst)
	resolver := bot.NewPartialResolver(tradeRepo, stateRepo, configRepo, execClient, limiter, metrics, hub,
		logger.WithComponent("resolver").Logger)
	engine := bot.NewEngine(admission, lifecycle, scheduler, execClient, stateRepo, configRepo, oppRepo, feeRepo,
		metrics, hub, botLogger)
	go engine.Run(ctx)

	// Сервисы
	deps := &api.Dependencies{
		ConfigService:      service.NewConfigService(configRepo),
		StateService:       service.NewStateService(stateRepo, configRepo),
		TradeService:       service.NewTradeService(tradeRepo),
		OpportunityService: service.NewOpportunityService(oppRepo, engine),
		FeeService:         service.NewFeeService(feeRepo),
		Operator:           engine,
		Resolver:           resolver,
		Hub:                hub,
		Logger:             logger.WithComponent("api").Logger,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.SetupRoutes(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	// Останавливаем ядро и поток результатов до остановки HTTP:
	// in-flight результаты ног успеют записаться
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
