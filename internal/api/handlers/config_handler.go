package handlers

import (
	"errors"
	"net/http"

	"triarb/internal/service"
)

// ConfigHandler обрабатывает HTTP запросы для торговых настроек.
//
// Endpoints:
// - GET /api/v1/config - получить настройки
// - PATCH /api/v1/config - обновить настройки (только при выключенной торговле)
type ConfigHandler struct {
	configService service.ConfigServiceInterface
}

// NewConfigHandler создает новый ConfigHandler с внедрением зависимостей.
func NewConfigHandler(configService service.ConfigServiceInterface) *ConfigHandler {
	return &ConfigHandler{configService: configService}
}

// GetConfig возвращает текущие торговые настройки
// GET /api/v1/config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configService.GetConfig()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get config", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateConfig обновляет торговые настройки.
// PATCH /api/v1/config
//
// Body: частичный объект настроек (только изменяемые поля).
//
// Response 409 Conflict если торговля включена: настройки заморожены
// на время живой торговли.
func (h *ConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	cfg, err := h.configService.UpdateConfig(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConfigLocked):
			writeError(w, http.StatusConflict, "settings are locked while trading is enabled", nil)
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, "invalid config value", err)
		default:
			writeError(w, http.StatusInternalServerError, "failed to update config", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// isValidationError различает ошибки валидации настроек
func isValidationError(err error) bool {
	for _, target := range []error{
		service.ErrInvalidTradeAmount,
		service.ErrInvalidProfitThreshold,
		service.ErrInvalidLossLimit,
		service.ErrInvalidExecutionMode,
		service.ErrInvalidParallelTrades,
		service.ErrInvalidRetries,
		service.ErrInvalidOrderTimeout,
		service.ErrInvalidStartCurrency,
		service.ErrEmptyStartCurrencies,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
