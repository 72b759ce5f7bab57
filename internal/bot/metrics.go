package bot

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics.go - Prometheus-метрики торгового ядра

// Metrics содержит счётчики и датчики ядра
type Metrics struct {
	TradesTotal        *prometheus.CounterVec
	AdmissionRejects   *prometheus.CounterVec
	LegRetriesTotal    prometheus.Counter
	LegLatency         prometheus.Histogram
	CircuitBreakerOn   prometheus.Gauge
	ExecutingTrades    prometheus.Gauge
	PartialTradesOpen  prometheus.Gauge
	DailyNetPnl        prometheus.Gauge
	ResolutionsTotal   *prometheus.CounterVec
	OpportunitiesTotal *prometheus.CounterVec
}

// NewMetrics регистрирует метрики ядра в реестре по умолчанию
func NewMetrics() *Metrics {
	return newMetricsWith(prometheus.DefaultRegisterer)
}

func newMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TradesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triarb",
			Name:      "trades_total",
			Help:      "Завершённые сделки по результату",
		}, []string{"result"}),
		AdmissionRejects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triarb",
			Name:      "admission_rejections_total",
			Help:      "Отказы допуска по причине",
		}, []string{"reason"}),
		LegRetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "triarb",
			Name:      "leg_retries_total",
			Help:      "Повторные попытки исполнения ног",
		}),
		LegLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "triarb",
			Name:      "leg_latency_seconds",
			Help:      "Латентность исполнения одной ноги",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CircuitBreakerOn: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "triarb",
			Name:      "circuit_breaker_active",
			Help:      "1 если circuit breaker взведён",
		}),
		ExecutingTrades: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "triarb",
			Name:      "executing_trades",
			Help:      "Сделки в исполнении",
		}),
		PartialTradesOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "triarb",
			Name:      "partial_trades_open",
			Help:      "Открытые зависшие позиции",
		}),
		DailyNetPnl: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "triarb",
			Name:      "daily_net_pnl_usd",
			Help:      "Дневной реализованный результат, USDT",
		}),
		ResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triarb",
			Name:      "resolutions_total",
			Help:      "Резолюции зависших позиций по результату",
		}, []string{"result"}),
		OpportunitiesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triarb",
			Name:      "opportunities_total",
			Help:      "Обработанные возможности по исходу",
		}, []string{"outcome"}),
	}
}

// ObserveState обновляет датчики из свежего снимка состояния
func (m *Metrics) ObserveState(isCircuitBroken bool, executing, partials int, dailyNet float64) {
	if isCircuitBroken {
		m.CircuitBreakerOn.Set(1)
	} else {
		m.CircuitBreakerOn.Set(0)
	}
	m.ExecutingTrades.Set(float64(executing))
	m.PartialTradesOpen.Set(float64(partials))
	m.DailyNetPnl.Set(dailyNet)
}

// resultLabel нормализует статус сделки в метку метрики
func resultLabel(status string) string {
	return strings.ToLower(status)
}
