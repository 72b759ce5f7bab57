package bot

import "context"

// executor.go - порт внешнего исполнителя ордеров
//
// Ядро не разговаривает с биржей напрямую: размещение ордеров, отмена
// по таймауту и трансляция валютной пары в символ биржи - зона
// ответственности внешнего executor-сервиса. Ядро отправляет запросы
// и реагирует на асинхронные результаты ног.

// OrderRequest - запрос на размещение ордера одной ноги
//
// Executor сам разрешает пару и сторону (FromCurrency/ToCurrency → symbol
// + buy/sell) и отменяет неисполненный ордер по истечении TimeoutSec,
// сообщая об этом как о сбое ноги.
type OrderRequest struct {
	TradeID      string  `json:"trade_id"`
	Leg          int     `json:"leg"`
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Amount       float64 `json:"amount"`     // в FromCurrency
	OrderType    string  `json:"order_type"` // market
	TimeoutSec   int     `json:"timeout_seconds"`
}

// LegResult - асинхронный результат исполнения одной ноги
//
// Pair/Side/ExpectedPrice заполняет executor (он знает стакан и символ);
// ядро использует их для расчета slippage и записи LegFill.
type LegResult struct {
	TradeID       string
	Leg           int
	Success       bool
	Pair          string
	Side          string   // buy, sell
	ExpectedPrice float64
	ExecutedPrice *float64 // nil если ордер не исполнился
	Amount        float64  // выход ноги в ToCurrency
	Fee           float64
	LatencyMs     int64
	OrderRef      string
	Error         string
	Retryable     bool // true для timeout/rate-limit, false для отказа биржи
}

// MarketSellRequest - запрос на компенсирующую продажу зависшей позиции
type MarketSellRequest struct {
	TradeID      string  `json:"trade_id"`
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Amount       float64 `json:"amount"`
	TimeoutSec   int     `json:"timeout_seconds"`
}

// SellResult - результат компенсирующей продажи
type SellResult struct {
	Proceeds float64 // фактическая выручка в ToCurrency
	OrderRef string
}

// Executor - интерфейс внешнего исполнителя ордеров
type Executor interface {
	// PlaceOrder отправляет запрос на размещение ордера ноги.
	// nil означает что executor принял запрос (не что ордер исполнен).
	PlaceOrder(ctx context.Context, req OrderRequest) error

	// MarketSell размещает рыночную продажу и ждет исполнения.
	// Используется только resolver'ом.
	MarketSell(ctx context.Context, req MarketSellRequest) (*SellResult, error)

	// GetRate возвращает текущий курс from → to
	GetRate(ctx context.Context, from, to string) (float64, error)

	// Results возвращает канал асинхронных результатов ног
	Results() <-chan LegResult
}
