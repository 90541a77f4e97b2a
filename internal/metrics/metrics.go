// Package metrics описывает метрики Prometheus для HTTP-слоя и auth-событий.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты auth-событий.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics хранит зарегистрированные коллекторы.
type Metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	authEvents *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg.
// Паникует при повторной регистрации, как принято в prometheus.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "users_api_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "users_api_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		authEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "users_api_auth_events_total",
				Help: "Total number of authentication events",
			},
			[]string{"event", "result"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.authEvents)
	return m
}

// ObserveRequest учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// AuthEvent учитывает событие входа, регистрации, проверки токена и т.п.
func (m *Metrics) AuthEvent(event string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.authEvents.WithLabelValues(event, result).Inc()
}
