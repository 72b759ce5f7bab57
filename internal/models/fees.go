package models

import "time"

// FeeParameters представляет текущие комиссии биржи (singleton, id=1)
//
// Read-only вход для проверок доходности. Обновляется снаружи:
// либо из API биржи, либо вручную оператором.
type FeeParameters struct {
	ID            int        `json:"id" db:"id"`
	MakerFee      float64    `json:"maker_fee" db:"maker_fee"` // доля, напр. 0.001 = 0.1%
	TakerFee      float64    `json:"taker_fee" db:"taker_fee"`
	FeeSource     string     `json:"fee_source" db:"fee_source"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty" db:"last_fetched_at"`
}

// Источники комиссий
const (
	FeeSourceExchangeAPI = "exchange_api"
	FeeSourceManual      = "manual"
	FeeSourcePending     = "pending" // комиссии ещё не получены
)

// RoundTripFee возвращает суммарную taker-комиссию за legs ног
func (f *FeeParameters) RoundTripFee(legs int) float64 {
	return f.TakerFee * float64(legs)
}

// IsStale возвращает true если комиссии не обновлялись дольше maxAge
func (f *FeeParameters) IsStale(maxAge time.Duration, now time.Time) bool {
	if f.FeeSource == FeeSourcePending || f.LastFetchedAt == nil {
		return true
	}
	return now.Sub(*f.LastFetchedAt) > maxAge
}
