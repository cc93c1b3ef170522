package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPObserver учитывает завершённые запросы (реализуется internal/metrics).
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, dur time.Duration)
}

// Metrics передаёт в наблюдатель метод, шаблон маршрута chi, статус и длительность.
// Шаблон известен только после роутинга, поэтому читается после next.ServeHTTP.
func Metrics(obs HTTPObserver) Middleware {
	return func(next http.Handler) http.Handler {
		if obs == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()

			next.ServeHTTP(sw, r)

			route := ""
			if rc := chi.RouteContext(r.Context()); rc != nil {
				route = rc.RoutePattern()
			}

			obs.ObserveHTTP(r.Method, route, sw.Status(), time.Since(start))
		})
	}
}
