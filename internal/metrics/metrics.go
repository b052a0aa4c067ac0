// Package metrics exposes connection manager activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muurk/wifictl/internal/reconnect"
	"github.com/muurk/wifictl/internal/wifi"
)

const namespace = "wifictl"

// Recorder owns a registry and the collectors fed by manager events and
// the portal.
type Recorder struct {
	registry *prometheus.Registry

	disconnects     *prometheus.CounterVec
	retries         prometheus.Counter
	connected       prometheus.Gauge
	scans           *prometheus.CounterVec
	scanNetworks    prometheus.Gauge
	portalMessages  *prometheus.CounterVec
	portalClients   prometheus.Gauge
	portalThrottled prometheus.Counter
}

// New creates a Recorder with its own registry, including the Go runtime
// and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_disconnects_total",
			Help:      "Station link drops by reason code and retry bucket.",
		}, []string{"reason", "bucket", "by_request"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Disconnects that scheduled an automatic reconnect.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "station_connected",
			Help:      "1 while the station holds an IP address.",
		}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed scans by result.",
		}, []string{"result"}),
		scanNetworks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_networks",
			Help:      "Networks found by the last completed scan.",
		}),
		portalMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portal_messages_total",
			Help:      "Portal requests by action.",
		}, []string{"action"}),
		portalClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portal_clients",
			Help:      "Connected portal clients.",
		}),
		portalThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portal_throttled_total",
			Help:      "Portal requests rejected by the rate limiter.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.disconnects,
		r.retries,
		r.connected,
		r.scans,
		r.scanNetworks,
		r.portalMessages,
		r.portalClients,
		r.portalThrottled,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Observe updates the collectors for one manager event. It satisfies
// wifi.Observer.
func (r *Recorder) Observe(ev wifi.Event) {
	switch e := ev.(type) {
	case wifi.StationConnected:
		r.connected.Set(1)
	case wifi.StationDisconnected:
		r.connected.Set(0)
		r.disconnects.WithLabelValues(
			strconv.Itoa(int(e.Reason)),
			reconnect.BucketOf(e.Reason).String(),
			strconv.FormatBool(e.ByRequest),
		).Inc()
		if e.WillRetry {
			r.retries.Inc()
		}
	case wifi.ApScanCompleted:
		if e.Failed {
			r.scans.WithLabelValues("failed").Inc()
		} else {
			r.scans.WithLabelValues("success").Inc()
		}
		r.scanNetworks.Set(float64(e.Count))
	}
}

// PortalMessage counts one portal request.
func (r *Recorder) PortalMessage(action string) {
	r.portalMessages.WithLabelValues(action).Inc()
}

// PortalThrottled counts one rate-limited portal request.
func (r *Recorder) PortalThrottled() {
	r.portalThrottled.Inc()
}

// PortalClientConnected adjusts the client gauge by delta.
func (r *Recorder) PortalClientConnected(delta int) {
	r.portalClients.Add(float64(delta))
}
