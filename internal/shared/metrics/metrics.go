package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	vpnConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vpn_connected",
		Help: "Last successfully probed connectivity (1=connected, 0=disconnected, -1=unknown)",
	})

	probeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpn_probe_total",
		Help: "Total number of connectivity probes by result",
	}, []string{"result"})

	probeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vpn_probe_duration_seconds",
		Help:    "Duration of connectivity probes",
		Buckets: prometheus.DefBuckets,
	})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpn_status_transitions_total",
		Help: "Total number of detected connectivity transitions",
	}, []string{"to"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpn_notifications_total",
		Help: "Total number of notifications handed to sinks",
	}, []string{"result"})
)

func init() {
	vpnConnectedGauge.Set(-1)
}

// ObserveProbe records one probe attempt.
func ObserveProbe(seconds float64, err error) {
	probeDuration.Observe(seconds)
	if err != nil {
		probeTotal.WithLabelValues("failure").Inc()
		return
	}
	probeTotal.WithLabelValues("success").Inc()
}

// SetConnected records the latest committed connectivity flag.
func SetConnected(connected bool) {
	if connected {
		vpnConnectedGauge.Set(1)
		return
	}
	vpnConnectedGauge.Set(0)
}

// ObserveTransition counts a detected change.
func ObserveTransition(connected bool) {
	if connected {
		transitionsTotal.WithLabelValues("connected").Inc()
		return
	}
	transitionsTotal.WithLabelValues("disconnected").Inc()
}

// ObserveNotification counts a notification delivery attempt.
func ObserveNotification(err error) {
	if err != nil {
		notificationsTotal.WithLabelValues("failure").Inc()
		return
	}
	notificationsTotal.WithLabelValues("success").Inc()
}
