package models

import "time"

// Opportunity представляет найденную сканером арбитражную возможность
//
// Ядро не вычисляет пути — оно только решает исполнять/пропустить
// и проставляет Status/TradeID.
type Opportunity struct {
	OpportunityID     string    `json:"opportunity_id" db:"opportunity_id"` // ULID
	FoundAt           time.Time `json:"found_at" db:"found_at"`
	Path              []string  `json:"path" db:"path"`
	Legs              int       `json:"legs" db:"legs"`
	ExpectedProfitPct float64   `json:"expected_profit_pct" db:"expected_profit_pct"`
	ExpectedProfitUSD float64   `json:"expected_profit_usd" db:"expected_profit_usd"`
	TradeAmount       float64   `json:"trade_amount" db:"trade_amount"`
	Status            string    `json:"status" db:"status"`
	StatusReason      string    `json:"status_reason,omitempty" db:"status_reason"`
	TradeID           string    `json:"trade_id,omitempty" db:"trade_id"` // только для EXECUTED
}

// Статусы возможности
const (
	OpportunityStatusPending  = "PENDING"
	OpportunityStatusExecuted = "EXECUTED"
	OpportunityStatusSkipped  = "SKIPPED"
	OpportunityStatusMissed   = "MISSED"
	OpportunityStatusExpired  = "EXPIRED"
)

// StartCurrency возвращает стартовую валюту пути
func (o *Opportunity) StartCurrency() string {
	if len(o.Path) == 0 {
		return ""
	}
	return o.Path[0]
}
