package middleware

import (
	"net/http"
	"os"
	"strings"

	"triarb/pkg/crypto"
)

// apiTokenHash - bcrypt-хеш операторского токена из переменной
// окружения API_TOKEN_HASH. В БД и окружении хранится только хеш,
// сам токен знает оператор.
var apiTokenHash = os.Getenv("API_TOKEN_HASH")

// Auth - middleware для аутентификации операторских запросов
//
// Ожидает заголовок Authorization: Bearer <token> и сверяет токен
// с bcrypt-хешем из API_TOKEN_HASH.
//
// Если API_TOKEN_HASH не задан, аутентификация выключена - режим
// локального развертывания с одним оператором. Для любого внешнего
// доступа хеш обязателен.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiTokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if !crypto.CheckTokenMatch(token, apiTokenHash) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
