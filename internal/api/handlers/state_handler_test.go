package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"triarb/internal/models"
	"triarb/internal/service"
)

func TestStateHandler_GetState(t *testing.T) {
	t.Run("successfully returns state", func(t *testing.T) {
		mockState := NewMockStateService()
		handler := NewStateHandler(mockState, NewMockOperator())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
		w := httptest.NewRecorder()

		handler.GetState(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var state models.TradingState
		if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if state.TotalTrades != 10 {
			t.Errorf("total_trades = %d, want 10", state.TotalTrades)
		}
	})

	t.Run("returns 500 on service error", func(t *testing.T) {
		mockState := NewMockStateService()
		mockState.getErr = ErrMockDatabase
		handler := NewStateHandler(mockState, NewMockOperator())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
		w := httptest.NewRecorder()

		handler.GetState(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestStateHandler_GetStatus(t *testing.T) {
	mockState := NewMockStateService()
	handler := NewStateHandler(mockState, NewMockOperator())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()

	handler.GetStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var status service.TradingStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !status.IsEnabled {
		t.Error("is_enabled = false, want true")
	}
	if status.WinRate != 0.6 {
		t.Errorf("win_rate = %v, want 0.6", status.WinRate)
	}
}

func TestStateHandler_TradingToggle(t *testing.T) {
	t.Run("enable trading", func(t *testing.T) {
		operator := NewMockOperator()
		handler := NewStateHandler(NewMockStateService(), operator)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/trading/enable", nil)
		w := httptest.NewRecorder()

		handler.EnableTrading(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if operator.lastCall() != "enable" {
			t.Errorf("last call = %q, want enable", operator.lastCall())
		}
	})

	t.Run("disable trading", func(t *testing.T) {
		operator := NewMockOperator()
		handler := NewStateHandler(NewMockStateService(), operator)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/trading/disable", nil)
		w := httptest.NewRecorder()

		handler.DisableTrading(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if operator.lastCall() != "disable" {
			t.Errorf("last call = %q, want disable", operator.lastCall())
		}
	})

	t.Run("disable trading with reason", func(t *testing.T) {
		operator := NewMockOperator()
		handler := NewStateHandler(NewMockStateService(), operator)

		body := strings.NewReader(`{"reason": "exchange maintenance window"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/trading/disable", body)
		w := httptest.NewRecorder()

		handler.DisableTrading(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if operator.disableReason != "exchange maintenance window" {
			t.Errorf("reason = %q, want exchange maintenance window", operator.disableReason)
		}
	})

	t.Run("returns 500 on operator error", func(t *testing.T) {
		operator := NewMockOperator()
		operator.err = ErrMockDatabase
		handler := NewStateHandler(NewMockStateService(), operator)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/trading/enable", nil)
		w := httptest.NewRecorder()

		handler.EnableTrading(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestStateHandler_Resets(t *testing.T) {
	t.Run("reset breaker", func(t *testing.T) {
		operator := NewMockOperator()
		handler := NewStateHandler(NewMockStateService(), operator)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/trading/reset-breaker", nil)
		w := httptest.NewRecorder()

		handler.ResetBreaker(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if operator.lastCall() != "reset-breaker" {
			t.Errorf("last call = %q, want reset-breaker", operator.lastCall())
		}
	})

	t.Run("reset daily", func(t *testing.T) {
		operator := NewMockOperator()
		handler := NewStateHandler(NewMockStateService(), operator)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/trading/reset-daily", nil)
		w := httptest.NewRecorder()

		handler.ResetDaily(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
	})

	t.Run("reset all with confirmation", func(t *testing.T) {
		operator := NewMockOperator()
		handler := NewStateHandler(NewMockStateService(), operator)

		body, _ := json.Marshal(map[string]bool{"confirm": true})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/trading/reset-all", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.ResetAll(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if !operator.confirm {
			t.Error("confirm flag was not passed to operator")
		}
	})

	t.Run("reset all without confirmation returns 400", func(t *testing.T) {
		operator := NewMockOperator()
		handler := NewStateHandler(NewMockStateService(), operator)

		body, _ := json.Marshal(map[string]bool{"confirm": false})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/trading/reset-all", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.ResetAll(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}
