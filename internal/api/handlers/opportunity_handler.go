package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"triarb/internal/repository"
	"triarb/internal/service"
)

// OpportunityHandler обрабатывает HTTP запросы для арбитражных возможностей.
//
// Endpoints:
// - POST /api/v1/opportunities - принять возможность от сканера
// - GET /api/v1/opportunities?limit= - последние возможности
// - GET /api/v1/opportunities/{id} - одна возможность
type OpportunityHandler struct {
	oppService service.OpportunityServiceInterface
}

// NewOpportunityHandler создает новый OpportunityHandler с внедрением зависимостей.
func NewOpportunityHandler(oppService service.OpportunityServiceInterface) *OpportunityHandler {
	return &OpportunityHandler{oppService: oppService}
}

// RecordOpportunity принимает возможность от сканера и подаёт её в ядро.
// POST /api/v1/opportunities
//
// Ответ содержит возможность с уже проставленным исходом
// (EXECUTED/SKIPPED/MISSED) и trade_id если сделка создана.
func (h *OpportunityHandler) RecordOpportunity(w http.ResponseWriter, r *http.Request) {
	var req service.RecordOpportunityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	opp, err := h.oppService.RecordOpportunity(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPath), errors.Is(err, service.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "invalid opportunity", err)
		default:
			writeError(w, http.StatusInternalServerError, "failed to record opportunity", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, opp)
}

// GetOpportunities возвращает последние возможности
// GET /api/v1/opportunities?limit=50
func (h *OpportunityHandler) GetOpportunities(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	opps, err := h.oppService.GetRecentOpportunities(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get opportunities", err)
		return
	}
	writeJSON(w, http.StatusOK, opps)
}

// GetOpportunity возвращает возможность по идентификатору
// GET /api/v1/opportunities/{id}
func (h *OpportunityHandler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, err := h.oppService.GetOpportunity(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, repository.ErrOpportunityNotFound) {
			writeError(w, http.StatusNotFound, "opportunity not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get opportunity", err)
		return
	}
	writeJSON(w, http.StatusOK, opp)
}
