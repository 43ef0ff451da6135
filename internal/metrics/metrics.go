// Package metrics holds Prometheus instruments for the configuration
// subsystem. Collectors are registered on the Registerer handed to
// NewConfig, so tests and the CLI can use private registries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config instruments the config manager.
type Config struct {
	Reloads       prometheus.Counter
	Saves         prometheus.Counter
	Notifications prometheus.Counter
	Errors        *prometheus.CounterVec
}

// NewConfig creates the config instruments and registers them on reg.
// A nil reg leaves them unregistered.
func NewConfig(reg prometheus.Registerer) *Config {
	m := &Config{
		Reloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hourglass_config_reloads_total",
				Help: "Cumulative number of successful configuration reloads.",
			}),
		Saves: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hourglass_config_saves_total",
				Help: "Cumulative number of successful configuration saves.",
			}),
		Notifications: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hourglass_config_notifications_total",
				Help: "Cumulative number of config-changed notifications emitted.",
			}),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hourglass_config_errors_total",
				Help: "Cumulative number of configuration errors, by error code.",
			}, []string{"code"}),
	}

	if reg != nil {
		reg.MustRegister(m.Reloads, m.Saves, m.Notifications, m.Errors)
	}
	return m
}

// ObserveError counts err under code. Empty codes are recorded as "unknown".
func (m *Config) ObserveError(code string) {
	if code == "" {
		code = "unknown"
	}
	m.Errors.WithLabelValues(code).Inc()
}
