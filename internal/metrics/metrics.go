// metrics — прометеевские метрики HTTP-слоя и событий аутентификации.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agrichain_auth"

// Metrics — набор коллекторов сервиса.
type Metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	authEvents *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg
// (обычно prometheus.DefaultRegisterer, чтобы /metrics отдавал их вместе с gRPC-метриками).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Authentication events (signup, signin, refresh, logout) by result.",
		}, []string{"event", "result"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.authEvents)
	}

	return m
}

// ObserveHTTP учитывает завершённый HTTP-запрос.
// route — шаблон маршрута chi, а не сырой путь, чтобы не раздувать кардинальность.
func (m *Metrics) ObserveHTTP(method, route string, status int, dur time.Duration) {
	if route == "" {
		route = "unmatched"
	}

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// AuthEvent учитывает событие аутентификации (result: ok|fail).
func (m *Metrics) AuthEvent(event, result string) {
	m.authEvents.WithLabelValues(event, result).Inc()
}
