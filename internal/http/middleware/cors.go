package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS разрешает кросс-доменные запросы SPA с перечисленных origin
// ("*" — с любого). Пустой список отключает CORS целиком: go-chi/cors
// трактует его как "разрешить всё".
func CORS(origins []string) Middleware {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		return passthrough
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         600,
	})
}
