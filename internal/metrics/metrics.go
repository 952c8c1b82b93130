// Package metrics содержит Prometheus-коллекторы сервиса.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
)

const namespace = "ecoswap"

var (
	// Registry хранит коллекторы приложения
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	swapTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swaps",
			Name:      "transitions_total",
			Help:      "Swap state machine operations by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	swapCascadeRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swaps",
			Name:      "cascade_rejected_total",
			Help:      "Pending swap requests rejected automatically on accept.",
		},
	)

	itemOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "operations_total",
			Help:      "Item catalog mutations by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		},
		[]string{"result"},
	)

	uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "uploads",
			Name:      "images_total",
			Help:      "Image uploads by storage backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		swapTransitions,
		swapCascadeRejected,
		itemOperations,
		loginAttempts,
		uploads,
	)
}

// Handler отдает метрики в формате Prometheus
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest учитывает обработанный HTTP-запрос
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if path == "" {
		path = "unknown"
	}
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSwap учитывает операцию над предложением обмена
func RecordSwap(action string, err error) {
	swapTransitions.WithLabelValues(action, outcome(err)).Inc()
}

// RecordCascade учитывает автоматически отклоненные предложения
func RecordCascade(n int) {
	if n > 0 {
		swapCascadeRejected.Add(float64(n))
	}
}

// RecordItem учитывает изменение каталога
func RecordItem(op string, err error) {
	itemOperations.WithLabelValues(op, outcome(err)).Inc()
}

// RecordLogin учитывает попытку входа
func RecordLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// RecordUpload учитывает загрузку изображения
func RecordUpload(backend string, err error) {
	uploads.WithLabelValues(backend, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(apperrors.CodeOf(err)))
}
