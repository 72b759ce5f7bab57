package handlers

import (
	"errors"
	"net/http"

	"triarb/internal/service"
)

// FeeHandler обрабатывает HTTP запросы для параметров комиссий.
//
// Endpoints:
// - GET /api/v1/fees - текущие комиссии
// - PUT /api/v1/fees - записать новые комиссии
type FeeHandler struct {
	feeService service.FeeServiceInterface
}

// NewFeeHandler создает новый FeeHandler с внедрением зависимостей.
func NewFeeHandler(feeService service.FeeServiceInterface) *FeeHandler {
	return &FeeHandler{feeService: feeService}
}

// GetFees возвращает текущие параметры комиссий
// GET /api/v1/fees
func (h *FeeHandler) GetFees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.feeService.GetFees()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get fees", err)
		return
	}
	writeJSON(w, http.StatusOK, fees)
}

// UpdateFees записывает новые комиссии (вручную или из API биржи)
// PUT /api/v1/fees
func (h *FeeHandler) UpdateFees(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateFeesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	fees, err := h.feeService.UpdateFees(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidFee), errors.Is(err, service.ErrInvalidFeeSource):
			writeError(w, http.StatusBadRequest, "invalid fee parameters", err)
		default:
			writeError(w, http.StatusInternalServerError, "failed to update fees", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, fees)
}
