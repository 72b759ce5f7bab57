package utils

// math.go - математика исполнения сделок

// SlippagePct возвращает проскальзывание как долю от ожидаемой цены,
// со знаком против направления ордера: положительное значение всегда
// означает ухудшение цены.
//
// Для buy хуже - исполниться дороже, для sell - дешевле:
//
//	buy:  (executed - expected) / expected
//	sell: (expected - executed) / expected
func SlippagePct(side string, expected, executed float64) float64 {
	if expected == 0 {
		return 0
	}
	if side == "sell" {
		return (expected - executed) / expected
	}
	return (executed - expected) / expected
}

// ClampNonNegative отсекает отрицательное значение до нуля.
// Используется для счётчиков, которые не должны дрейфовать ниже нуля
// после вычитаний с плавающей точкой.
func ClampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// NetProfitPct возвращает ожидаемую доходность за вычетом комиссий
// всех ног. Обе величины - доли (0.006 = 0.6%).
func NetProfitPct(grossPct, roundTripFeePct float64) float64 {
	return grossPct - roundTripFeePct
}
