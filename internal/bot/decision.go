package bot

import (
	"fmt"

	"triarb/internal/models"
	"triarb/pkg/utils"
)

// decision.go - решение исполнять/пропустить возможность
//
// Чистая функция над тремя входами (возможность, настройки, комиссии):
// без I/O, удобно проверяется таблично.

// Причины пропуска возможности
const (
	SkipReasonFeesPending    = "fees_pending"
	SkipReasonStartCurrency  = "start_currency_filtered"
	SkipReasonBelowThreshold = "below_threshold"
)

// Decision - результат проверки доходности
type Decision struct {
	Execute      bool
	Reason       string  // причина пропуска, пусто при Execute
	NetProfitPct float64 // ожидаемая доходность за вычетом комиссий
}

// ShouldExecute проверяет, проходит ли возможность порог доходности
// с учётом комиссий за все ноги и фильтра стартовых валют.
//
// Пока комиссии не получены (источник pending), любая возможность
// пропускается: считать доходность с нулевой комиссией опасно.
func ShouldExecute(opp *models.Opportunity, cfg *models.TradingConfig, fees *models.FeeParameters) Decision {
	if fees.FeeSource == models.FeeSourcePending {
		return Decision{Reason: SkipReasonFeesPending}
	}
	if !cfg.AllowsStartCurrency(opp.StartCurrency()) {
		return Decision{Reason: SkipReasonStartCurrency}
	}

	net := utils.NetProfitPct(opp.ExpectedProfitPct, fees.RoundTripFee(opp.Legs))
	if net < cfg.MinProfitThreshold {
		return Decision{
			Reason: fmt.Sprintf("%s: net %.4f < %.4f",
				SkipReasonBelowThreshold, net, cfg.MinProfitThreshold),
			NetProfitPct: net,
		}
	}
	return Decision{Execute: true, NetProfitPct: net}
}
