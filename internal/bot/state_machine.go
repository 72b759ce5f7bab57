package bot

import "triarb/internal/models"

// ValidTransitions определяет допустимые переходы между статусами сделки
//
// Все переходы односторонние, ни один статус не входится повторно.
// COMPLETED, FAILED и RESOLVED - конечные без исходящих переходов.
var ValidTransitions = map[string][]string{
	models.TradeStatusPending:   {models.TradeStatusExecuting},
	models.TradeStatusExecuting: {models.TradeStatusCompleted, models.TradeStatusPartial, models.TradeStatusFailed},
	models.TradeStatusPartial:   {models.TradeStatusResolved}, // только через resolver
	models.TradeStatusCompleted: {},
	models.TradeStatusFailed:    {},
	models.TradeStatusResolved:  {},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StatusInfo возвращает описание статуса для UI
func StatusInfo(s string) string {
	switch s {
	case models.TradeStatusPending:
		return "Допуск получен, ожидание первой ноги"
	case models.TradeStatusExecuting:
		return "Исполнение ног арбитража..."
	case models.TradeStatusCompleted:
		return "Все ноги исполнены"
	case models.TradeStatusPartial:
		return "Капитал завис в промежуточной валюте! Требуется резолюция"
	case models.TradeStatusFailed:
		return "Сделка не состоялась (капитал не под риском)"
	case models.TradeStatusResolved:
		return "Зависшая позиция продана, результат учтен"
	default:
		return "Неизвестный статус"
	}
}

// IsInFlight возвращает true если сделка занимает торговую мощность
func IsInFlight(s string) bool {
	return s == models.TradeStatusPending || s == models.TradeStatusExecuting
}

// NeedsResolution возвращает true если по сделке завис капитал
func NeedsResolution(s string) bool {
	return s == models.TradeStatusPartial
}
