// Package metrics exports service telemetry to Prometheus. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopple"

// Metrics holds the registered collectors.
type Metrics struct {
	searchDuration *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	behaviorEvents *prometheus.CounterVec
	budgetAlerts   *prometheus.CounterVec
	txConflicts    *prometheus.CounterVec
	triggerErrors  *prometheus.CounterVec
}

// New registers every collector on reg, reusing collectors that are already
// registered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Latency of user and product searches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Search cache lookups by tier and outcome.",
		}, []string{"tier", "outcome"}),
		behaviorEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "behavior_events_total",
			Help:      "Tracked behavior events by type.",
		}, []string{"event_type"}),
		budgetAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_alerts_total",
			Help:      "Budget alerts created by type.",
		}, []string{"type"}),
		txConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_conflicts_total",
			Help:      "Optimistic transaction retries by collection.",
		}, []string{"collection"}),
		triggerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_errors_total",
			Help:      "Trigger handler failures that were logged and swallowed.",
		}, []string{"trigger"}),
	}

	var err error
	if m.searchDuration, err = register(reg, m.searchDuration); err != nil {
		return nil, err
	}
	if m.cacheLookups, err = register(reg, m.cacheLookups); err != nil {
		return nil, err
	}
	if m.behaviorEvents, err = register(reg, m.behaviorEvents); err != nil {
		return nil, err
	}
	if m.budgetAlerts, err = register(reg, m.budgetAlerts); err != nil {
		return nil, err
	}
	if m.txConflicts, err = register(reg, m.txConflicts); err != nil {
		return nil, err
	}
	if m.triggerErrors, err = register(reg, m.triggerErrors); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveSearch(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(tier string, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(tier, outcome).Inc()
}

func (m *Metrics) BehaviorEvent(eventType string) {
	if m == nil {
		return
	}
	m.behaviorEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) BudgetAlert(alertType string) {
	if m == nil {
		return
	}
	m.budgetAlerts.WithLabelValues(alertType).Inc()
}

func (m *Metrics) TxConflict(collection string) {
	if m == nil {
		return
	}
	m.txConflicts.WithLabelValues(collection).Inc()
}

func (m *Metrics) TriggerError(trigger string) {
	if m == nil {
		return
	}
	m.triggerErrors.WithLabelValues(trigger).Inc()
}
