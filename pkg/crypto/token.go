package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Ошибки проверки токена
var (
	ErrEmptyToken    = errors.New("token cannot be empty")
	ErrTokenMismatch = errors.New("token does not match hash")
	ErrInvalidHash   = errors.New("invalid token hash format")
	ErrTokenTooLong  = errors.New("token exceeds maximum length of 72 bytes")
)

// DefaultCost - стоимость bcrypt для хеширования операторского токена
const DefaultCost = 12

// maxTokenLength - bcrypt обрезает вход 72 байтами
const maxTokenLength = 72

// HashToken хеширует операторский токен через bcrypt.
// Результат кладется в API_TOKEN_HASH; сам токен нигде не хранится.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	if len(token) > maxTokenLength {
		return "", ErrTokenTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyToken проверяет соответствие токена хешу.
// bcrypt сравнивает за константное время.
func VerifyToken(token, hash string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if hash == "" {
		return ErrInvalidHash
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrTokenMismatch
		}
		return ErrInvalidHash
	}
	return nil
}

// CheckTokenMatch проверяет соответствие токена хешу и возвращает bool
func CheckTokenMatch(token, hash string) bool {
	return VerifyToken(token, hash) == nil
}
