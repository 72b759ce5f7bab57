package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"triarb/internal/bot"
	"triarb/internal/models"
	"triarb/internal/repository"
	"triarb/internal/service"
	"triarb/pkg/utils"
)

// TradeHandler обрабатывает HTTP запросы для истории сделок
// и резолюции зависших позиций.
//
// Endpoints:
// - GET /api/v1/trades?limit=&status=&from=&to= - список сделок
// - GET /api/v1/trades/stats - распределение по статусам
// - GET /api/v1/trades/partials - зависшие позиции
// - GET /api/v1/trades/{id} - одна сделка
// - GET /api/v1/trades/{id}/resolve/preview - расчет резолюции
// - POST /api/v1/trades/{id}/resolve - продать зависшую позицию
type TradeHandler struct {
	tradeService service.TradeServiceInterface
	resolver     service.ResolverInterface
}

// NewTradeHandler создает новый TradeHandler с внедрением зависимостей.
func NewTradeHandler(tradeService service.TradeServiceInterface, resolver service.ResolverInterface) *TradeHandler {
	return &TradeHandler{tradeService: tradeService, resolver: resolver}
}

// GetTrades возвращает список сделок.
// GET /api/v1/trades?limit=50&status=COMPLETED&from=RFC3339&to=RFC3339
//
// from/to включают фильтр по времени; today=true выбирает текущие
// UTC-сутки; status опционален.
func (h *TradeHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	status := q.Get("status")

	if q.Get("today") == "true" {
		trades, err := h.tradeService.GetTradesInRange(utils.GetDayStart(), utils.GetDayEnd(), status, limit)
		if err != nil {
			h.writeListError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, trades)
		return
	}

	if q.Get("from") != "" || q.Get("to") != "" {
		from, err := time.Parse(time.RFC3339, q.Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'from' timestamp", err)
			return
		}
		to, err := time.Parse(time.RFC3339, q.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'to' timestamp", err)
			return
		}
		trades, err := h.tradeService.GetTradesInRange(from, to, status, limit)
		if err != nil {
			h.writeListError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, trades)
		return
	}

	var err error
	var trades interface{}
	if status != "" {
		trades, err = h.tradeService.GetTradesByStatus(status, limit)
	} else {
		trades, err = h.tradeService.GetRecentTrades(limit)
	}
	if err != nil {
		h.writeListError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (h *TradeHandler) writeListError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrInvalidTimeRange):
		writeError(w, http.StatusBadRequest, "invalid query", err)
	default:
		writeError(w, http.StatusInternalServerError, "failed to get trades", err)
	}
}

// GetTrade возвращает сделку по идентификатору
// GET /api/v1/trades/{id}
func (h *TradeHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := mux.Vars(r)["id"]
	trade, err := h.tradeService.GetTrade(tradeID)
	if err != nil {
		if errors.Is(err, repository.ErrTradeNotFound) {
			writeError(w, http.StatusNotFound, "trade not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get trade", err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// GetPartialTrades возвращает все зависшие позиции
// GET /api/v1/trades/partials
func (h *TradeHandler) GetPartialTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.tradeService.GetPartialTrades()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get partial trades", err)
		return
	}
	if trades == nil {
		trades = []*models.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// GetTradeStats возвращает распределение сделок по статусам
// GET /api/v1/trades/stats
func (h *TradeHandler) GetTradeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tradeService.GetTradeStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get trade stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// PreviewResolve считает ожидаемый результат резолюции без продажи
// GET /api/v1/trades/{id}/resolve/preview
func (h *TradeHandler) PreviewResolve(w http.ResponseWriter, r *http.Request) {
	tradeID := mux.Vars(r)["id"]
	preview, err := h.resolver.PreviewResolve(r.Context(), tradeID)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// Resolve продаёт зависшую позицию и закрывает сделку
// POST /api/v1/trades/{id}/resolve
func (h *TradeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	tradeID := mux.Vars(r)["id"]
	trade, err := h.resolver.Resolve(r.Context(), tradeID)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (h *TradeHandler) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrTradeNotFound):
		writeError(w, http.StatusNotFound, "trade not found", nil)
	case errors.Is(err, bot.ErrNotPartial):
		writeError(w, http.StatusConflict, "trade is not awaiting resolution", err)
	case errors.Is(err, bot.ErrResolveSellFailed):
		// Продажа не прошла, позиция осталась PARTIAL - можно повторить
		writeError(w, http.StatusBadGateway, "resolution sell failed, trade stays partial", err)
	default:
		writeError(w, http.StatusInternalServerError, "failed to resolve trade", err)
	}
}
