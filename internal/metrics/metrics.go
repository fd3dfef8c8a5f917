// v1
// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	ticksTotal      prometheus.Counter
	busReconnects   prometheus.Counter
	weatherFailures prometheus.Counter
	pumpCommands    *prometheus.CounterVec
	daysProcessed   prometheus.Counter

	lastET0       prometheus.Gauge
	lastMeanVWC   prometheus.Gauge
	pumpRemaining prometheus.Gauge
	busConnected  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrigator_ticks_total",
			Help: "Total control loop ticks executed.",
		}),
		busReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrigator_bus_reconnects_total",
			Help: "Total broker reconnection attempts.",
		}),
		weatherFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrigator_weather_fetch_failures_total",
			Help: "Total failed weather API fetches.",
		}),
		pumpCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigator_pump_commands_total",
			Help: "Total pump commands published, by action.",
		}, []string{"action"}),
		daysProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrigator_days_processed_total",
			Help: "Total daily irrigation decisions completed.",
		}),
		lastET0: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "irrigator_last_et0_mm",
			Help: "Most recent reference evapotranspiration estimate in mm/day.",
		}),
		lastMeanVWC: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "irrigator_last_mean_vwc_percent",
			Help: "Mean volumetric water content from the last sampling window.",
		}),
		pumpRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "irrigator_pump_remaining_seconds",
			Help: "Seconds of pump runtime left in the current watering.",
		}),
		busConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "irrigator_bus_connected",
			Help: "1 when the broker session is up, 0 otherwise.",
		}),
	}

	m.reg.MustRegister(
		m.ticksTotal,
		m.busReconnects,
		m.weatherFailures,
		m.pumpCommands,
		m.daysProcessed,
		m.lastET0,
		m.lastMeanVWC,
		m.pumpRemaining,
		m.busConnected,
	)

	m.pumpCommands.WithLabelValues("on").Add(0)
	m.pumpCommands.WithLabelValues("off").Add(0)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
}

func (m *Metrics) BusReconnect() {
	if m == nil {
		return
	}
	m.busReconnects.Inc()
}

func (m *Metrics) BusConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.busConnected.Set(1)
	} else {
		m.busConnected.Set(0)
	}
}

func (m *Metrics) WeatherFailure() {
	if m == nil {
		return
	}
	m.weatherFailures.Inc()
}

func (m *Metrics) PumpCommand(action string) {
	if m == nil {
		return
	}
	m.pumpCommands.WithLabelValues(action).Inc()
}

func (m *Metrics) DayProcessed(meanVWC, et0 float64) {
	if m == nil {
		return
	}
	m.daysProcessed.Inc()
	m.lastMeanVWC.Set(meanVWC)
	m.lastET0.Set(et0)
}

func (m *Metrics) PumpRemaining(seconds float64) {
	if m == nil {
		return
	}
	m.pumpRemaining.Set(seconds)
}
