package handlers

import (
	"errors"
	"io"
	"net/http"

	"triarb/internal/bot"
	"triarb/internal/service"
)

// StateHandler обрабатывает HTTP запросы для торгового состояния
// и операторских команд.
//
// Endpoints:
// - GET /api/v1/state - полный снимок состояния
// - GET /api/v1/status - сводка для дашборда
// - POST /api/v1/trading/enable - включить торговлю
// - POST /api/v1/trading/disable - выключить торговлю
// - POST /api/v1/trading/reset-breaker - снять circuit breaker
// - POST /api/v1/trading/reset-daily - обнулить дневные счётчики
// - POST /api/v1/trading/reset-all - обнулить все счётчики (с подтверждением)
type StateHandler struct {
	stateService service.StateServiceInterface
	operator     service.OperatorInterface
}

// NewStateHandler создает новый StateHandler с внедрением зависимостей.
func NewStateHandler(stateService service.StateServiceInterface, operator service.OperatorInterface) *StateHandler {
	return &StateHandler{stateService: stateService, operator: operator}
}

// GetState возвращает полный снимок торгового состояния
// GET /api/v1/state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.stateService.GetState()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get state", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GetStatus возвращает сводку состояния для дашборда
// GET /api/v1/status
func (h *StateHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.stateService.GetStatus()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// EnableTrading включает допуск новых сделок
// POST /api/v1/trading/enable
func (h *StateHandler) EnableTrading(w http.ResponseWriter, r *http.Request) {
	if err := h.operator.EnableTrading(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enable trading", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Message: "trading enabled"})
}

// disableTradingRequest - необязательная причина остановки
type disableTradingRequest struct {
	Reason string `json:"reason"`
}

// DisableTrading выключает допуск новых сделок.
// Уже исполняющиеся сделки доводятся до терминального статуса.
// POST /api/v1/trading/disable
//
// Body (опционально): {"reason": "..."} - причина пишется в журнал.
func (h *StateHandler) DisableTrading(w http.ResponseWriter, r *http.Request) {
	var req disableTradingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.operator.DisableTrading(r.Context(), req.Reason); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to disable trading", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Message: "trading disabled"})
}

// ResetBreaker снимает защёлку circuit breaker'а
// POST /api/v1/trading/reset-breaker
func (h *StateHandler) ResetBreaker(w http.ResponseWriter, r *http.Request) {
	state, err := h.operator.ResetBreaker(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset circuit breaker", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ResetDaily принудительно обнуляет дневные счётчики
// POST /api/v1/trading/reset-daily
func (h *StateHandler) ResetDaily(w http.ResponseWriter, r *http.Request) {
	state, err := h.operator.ResetDaily(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset daily counters", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// resetAllRequest - подтверждение разрушительной команды
type resetAllRequest struct {
	Confirm bool `json:"confirm"`
}

// ResetAll обнуляет дневные и кумулятивные счётчики.
// POST /api/v1/trading/reset-all
//
// Body: {"confirm": true} - без подтверждения возвращается 400.
func (h *StateHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	var req resetAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	state, err := h.operator.ResetAll(r.Context(), req.Confirm)
	if err != nil {
		if errors.Is(err, bot.ErrConfirmationRequired) {
			writeError(w, http.StatusBadRequest, "confirmation required: pass {\"confirm\": true}", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to reset counters", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
