package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// validator.go - валидация входных данных сканера и оператора

// currencyRe - код валюты: 2-10 символов, буквы и цифры.
// Покрывает и тикеры с цифрой (1INCH), и стейблкоины (USDT).
var currencyRe = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// ValidateCurrency проверяет код валюты (BTC, USDT, 1INCH)
func ValidateCurrency(code string) error {
	if code == "" {
		return fmt.Errorf("currency code is empty")
	}
	if !currencyRe.MatchString(NormalizeCurrency(code)) {
		return fmt.Errorf("invalid currency code %q", code)
	}
	return nil
}

// NormalizeCurrency приводит код валюты к каноническому виду
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidatePath проверяет арбитражный путь: минимум 3 ноги,
// цикл замкнут (первая валюта равна последней), все коды валидны,
// соседние валюты различаются.
func ValidatePath(path []string) error {
	if len(path) < 4 {
		return fmt.Errorf("path must contain at least 3 legs, got %d", len(path)-1)
	}
	if path[0] != path[len(path)-1] {
		return fmt.Errorf("path must close the cycle: starts at %s, ends at %s", path[0], path[len(path)-1])
	}
	for i, code := range path {
		if err := ValidateCurrency(code); err != nil {
			return fmt.Errorf("path[%d]: %w", i, err)
		}
		if i > 0 && path[i] == path[i-1] {
			return fmt.Errorf("path[%d]: consecutive duplicate %s", i, code)
		}
	}
	return nil
}

// ValidateAmount проверяет торговую сумму (> 0)
func ValidateAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %v", amount)
	}
	return nil
}
