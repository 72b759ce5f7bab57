package models

import "time"

// Trade представляет одну треугольную арбитражную сделку
//
// Жизненный цикл: PENDING → EXECUTING → {COMPLETED, PARTIAL, FAILED},
// PARTIAL → RESOLVED (через resolver). Переходы односторонние.
type Trade struct {
	TradeID       string    `json:"trade_id" db:"trade_id"` // ULID
	Path          []string  `json:"path" db:"path"`         // последовательность валют, len = Legs+1
	Legs          int       `json:"legs" db:"legs"`
	AmountIn      float64   `json:"amount_in" db:"amount_in"`
	AmountOut     *float64  `json:"amount_out,omitempty" db:"amount_out"` // null пока сделка не завершена
	ProfitLoss    *float64  `json:"profit_loss,omitempty" db:"profit_loss"`
	ProfitLossPct *float64  `json:"profit_loss_pct,omitempty" db:"profit_loss_pct"`
	Status        string    `json:"status" db:"status"`
	CurrentLeg    int       `json:"current_leg" db:"current_leg"`
	ErrorMessage  string    `json:"error_message,omitempty" db:"error_message"`

	// Зависшая позиция (только для PARTIAL/RESOLVED)
	HeldCurrency string  `json:"held_currency,omitempty" db:"held_currency"`
	HeldAmount   float64 `json:"held_amount,omitempty" db:"held_amount"`
	HeldValueUSD float64 `json:"held_value_usd,omitempty" db:"held_value_usd"` // снимок на момент сбоя

	LegFills []LegFill `json:"leg_fills" db:"leg_fills"` // JSONB в БД

	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	TotalExecutionMs int64      `json:"total_execution_ms" db:"total_execution_ms"`

	// Ожидаемая доходность из Opportunity на момент входа
	OpportunityProfitPct float64 `json:"opportunity_profit_pct" db:"opportunity_profit_pct"`

	// Резолюция (только для RESOLVED)
	ResolvedAt        *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedAmountUSD *float64   `json:"resolved_amount_usd,omitempty" db:"resolved_amount_usd"`
	ResolutionTradeID string     `json:"resolution_trade_id,omitempty" db:"resolution_trade_id"`
}

// LegFill представляет результат исполнения одной ноги
//
// Фиксированная схема вместо слабо-типизированной map:
// опциональные поля сделаны указателями явно.
type LegFill struct {
	Leg           int      `json:"leg"`
	Pair          string   `json:"pair"`
	Side          string   `json:"side"` // buy, sell
	ExpectedPrice float64  `json:"expected_price"`
	ExecutedPrice *float64 `json:"executed_price,omitempty"` // null если ордер не исполнился
	Amount        float64  `json:"amount"`
	Fee           float64  `json:"fee"`
	SlippagePct   float64  `json:"slippage_pct"` // (executed-expected)/expected, со знаком против направления
	LatencyMs     int64    `json:"latency_ms"`
	OrderRef      string   `json:"order_ref,omitempty"`
}

// Статусы сделки (state machine)
const (
	TradeStatusPending   = "PENDING"   // допуск получен, ордер первой ноги ещё не принят
	TradeStatusExecuting = "EXECUTING" // ноги исполняются
	TradeStatusCompleted = "COMPLETED" // все ноги исполнены
	TradeStatusPartial   = "PARTIAL"   // капитал завис в промежуточной валюте
	TradeStatusFailed    = "FAILED"    // сбой без капитала под риском
	TradeStatusResolved  = "RESOLVED"  // зависшая позиция продана обратно
)

// Стороны ордера
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// IsTerminal возвращает true если статус конечный (сделка больше не исполняется)
func (t *Trade) IsTerminal() bool {
	switch t.Status {
	case TradeStatusCompleted, TradeStatusPartial, TradeStatusFailed, TradeStatusResolved:
		return true
	}
	return false
}

// IsSettled возвращает true если результат сделки уже учтён в счётчиках.
// PARTIAL — открытая неопределённая позиция, в счётчики не входит.
func (t *Trade) IsSettled() bool {
	switch t.Status {
	case TradeStatusCompleted, TradeStatusFailed, TradeStatusResolved:
		return true
	}
	return false
}
