// Package id генерирует сортируемые по времени идентификаторы сделок.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// NewTradeID возвращает новый ULID.
// Монотонная энтропия гарантирует уникальность и упорядоченность
// идентификаторов, созданных в одну миллисекунду.
func NewTradeID() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
