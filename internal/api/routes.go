package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"triarb/internal/api/handlers"
	"triarb/internal/api/middleware"
	"triarb/internal/service"
	"triarb/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	ConfigService      service.ConfigServiceInterface
	StateService       service.StateServiceInterface
	TradeService       service.TradeServiceInterface
	OpportunityService service.OpportunityServiceInterface
	FeeService         service.FeeServiceInterface
	Operator           service.OperatorInterface
	Resolver           service.ResolverInterface
	Hub                *websocket.Hub
	Logger             *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /config
//	│   ├── GET / - торговые настройки
//	│   └── PATCH / - обновить настройки (торговля выключена)
//	├── /state - GET полный снимок состояния
//	├── /status - GET сводка для дашборда
//	├── /trading/
//	│   ├── POST /enable - включить торговлю
//	│   ├── POST /disable - выключить торговлю
//	│   ├── POST /reset-breaker - снять circuit breaker
//	│   ├── POST /reset-daily - обнулить дневные счётчики
//	│   └── POST /reset-all - обнулить все счётчики
//	├── /trades/
//	│   ├── GET / - список сделок
//	│   ├── GET /stats - распределение по статусам
//	│   ├── GET /partials - зависшие позиции
//	│   ├── GET /{id} - одна сделка
//	│   ├── GET /{id}/resolve/preview - расчет резолюции
//	│   └── POST /{id}/resolve - продать зависшую позицию
//	├── /opportunities/
//	│   ├── POST / - принять возможность от сканера
//	│   ├── GET / - последние возможности
//	│   └── GET /{id} - одна возможность
//	└── /fees
//	    ├── GET / - текущие комиссии
//	    └── PUT / - записать комиссии
//
// /ws - WebSocket для real-time обновлений
// /metrics - Prometheus
// /health - liveness
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (для /api/v1, если настроен API_TOKEN_HASH)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth)

	if deps.ConfigService != nil {
		h := handlers.NewConfigHandler(deps.ConfigService)
		api.HandleFunc("/config", h.GetConfig).Methods(http.MethodGet)
		api.HandleFunc("/config", h.UpdateConfig).Methods(http.MethodPatch)
	}

	if deps.StateService != nil && deps.Operator != nil {
		h := handlers.NewStateHandler(deps.StateService, deps.Operator)
		api.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
		api.HandleFunc("/status", h.GetStatus).Methods(http.MethodGet)
		api.HandleFunc("/trading/enable", h.EnableTrading).Methods(http.MethodPost)
		api.HandleFunc("/trading/disable", h.DisableTrading).Methods(http.MethodPost)
		api.HandleFunc("/trading/reset-breaker", h.ResetBreaker).Methods(http.MethodPost)
		api.HandleFunc("/trading/reset-daily", h.ResetDaily).Methods(http.MethodPost)
		api.HandleFunc("/trading/reset-all", h.ResetAll).Methods(http.MethodPost)
	}

	if deps.TradeService != nil {
		h := handlers.NewTradeHandler(deps.TradeService, deps.Resolver)
		api.HandleFunc("/trades", h.GetTrades).Methods(http.MethodGet)
		api.HandleFunc("/trades/stats", h.GetTradeStats).Methods(http.MethodGet)
		api.HandleFunc("/trades/partials", h.GetPartialTrades).Methods(http.MethodGet)
		api.HandleFunc("/trades/{id}", h.GetTrade).Methods(http.MethodGet)
		if deps.Resolver != nil {
			api.HandleFunc("/trades/{id}/resolve/preview", h.PreviewResolve).Methods(http.MethodGet)
			api.HandleFunc("/trades/{id}/resolve", h.Resolve).Methods(http.MethodPost)
		}
	}

	if deps.OpportunityService != nil {
		h := handlers.NewOpportunityHandler(deps.OpportunityService)
		api.HandleFunc("/opportunities", h.RecordOpportunity).Methods(http.MethodPost)
		api.HandleFunc("/opportunities", h.GetOpportunities).Methods(http.MethodGet)
		api.HandleFunc("/opportunities/{id}", h.GetOpportunity).Methods(http.MethodGet)
	}

	if deps.FeeService != nil {
		h := handlers.NewFeeHandler(deps.FeeService)
		api.HandleFunc("/fees", h.GetFees).Methods(http.MethodGet)
		api.HandleFunc("/fees", h.UpdateFees).Methods(http.MethodPut)
	}

	if deps.Hub != nil {
		router.HandleFunc("/ws", deps.Hub.ServeWS)
	}

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	return router
}
