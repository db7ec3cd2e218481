package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	wafEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_waf_events_total",
		Help: "Total number of firewall log events analyzed",
	})
	threatsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "argus_threats_total",
		Help: "Total number of classified threats by severity",
	}, []string{"severity"})
	autoBlocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_auto_blocks_total",
		Help: "Total number of IPs blocked automatically",
	})
	manualBlocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_manual_blocks_total",
		Help: "Total number of IPs blocked manually",
	})
	unblocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_unblocks_total",
		Help: "Total number of IPs unblocked (explicit or expired)",
	})
	sweepErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_sweep_errors_total",
		Help: "Total number of errors during expired-block sweeps",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(wafEventsTotal, threatsTotal, autoBlocksTotal, manualBlocksTotal, unblocksTotal, sweepErrorsTotal)
}

// IncWafEvent increments the analyzed events counter.
func IncWafEvent() { wafEventsTotal.Inc() }

// IncThreat increments the threat counter for a severity.
func IncThreat(severity string) { threatsTotal.WithLabelValues(severity).Inc() }

// IncAutoBlock increments the automatic block counter.
func IncAutoBlock() { autoBlocksTotal.Inc() }

// IncManualBlock increments the manual block counter.
func IncManualBlock() { manualBlocksTotal.Inc() }

// IncUnblock increments the unblock counter.
func IncUnblock() { unblocksTotal.Inc() }

// IncSweepError increments the sweep error counter.
func IncSweepError() { sweepErrorsTotal.Inc() }
