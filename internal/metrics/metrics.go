// Package metrics собирает prometheus-метрики трекера.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "subscription_tracker"

// Metrics набор коллекторов. Нулевой указатель допустим и ничего не пишет.
type Metrics struct {
	transitions    *prometheus.CounterVec
	historyRows    prometheus.Counter
	reminders      *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	lifecycleRuns  prometheus.Counter
	lastLifecycle  prometheus.Gauge
	notifyRuns     prometheus.Counter
	lastNotifyPass prometheus.Gauge
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default возвращает метрики, зарегистрированные в глобальном реестре.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew создает метрики и регистрирует их в reg. Паникует при повторной регистрации.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Applied lifecycle transitions by rule.",
		}, []string{"rule"}),
		historyRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "history_rows_created_total",
			Help:      "Payment history rows created by lifecycle passes.",
		}),
		lifecycleRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "runs_total",
			Help:      "Completed lifecycle passes.",
		}),
		lastLifecycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed lifecycle pass.",
		}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "reminders_total",
			Help:      "Reminders processed by type and status.",
		}, []string{"type", "status"}),
		notifyRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "runs_total",
			Help:      "Completed notification scheduler passes.",
		}),
		lastNotifyPass: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last notification scheduler pass.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	reg.MustRegister(
		m.transitions, m.historyRows, m.lifecycleRuns, m.lastLifecycle,
		m.reminders, m.notifyRuns, m.lastNotifyPass,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Transition учитывает примененный переход.
func (m *Metrics) Transition(rule string, historyCreated bool) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(rule).Inc()
	if historyCreated {
		m.historyRows.Inc()
	}
}

// LifecycleRun отмечает завершенный проход пересчета.
func (m *Metrics) LifecycleRun(at time.Time) {
	if m == nil {
		return
	}
	m.lifecycleRuns.Inc()
	m.lastLifecycle.Set(float64(at.Unix()))
}

// Reminder учитывает напоминание с итоговым статусом.
func (m *Metrics) Reminder(kind, status string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(kind, status).Inc()
}

// NotificationRun отмечает завершенный проход рассылки.
func (m *Metrics) NotificationRun(at time.Time) {
	if m == nil {
		return
	}
	m.notifyRuns.Inc()
	m.lastNotifyPass.Set(float64(at.Unix()))
}

// Middleware считает запросы по шаблону маршрута chi.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
