// Package metrics provides the Prometheus recorder for transfer lifecycle
// events. Collectors are registered on an injected registerer rather than
// the global default, so tests and multiple instances never collide.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder registers and feeds the bridge's lifecycle collectors.
type Recorder struct {
	transfersCreated  *prometheus.CounterVec
	transfersAdvanced *prometheus.CounterVec
	policyRejections  prometheus.Counter
}

// NewRecorder creates a recorder and registers its collectors.
func NewRecorder(registerer prometheus.Registerer) *Recorder {
	r := &Recorder{
		transfersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_transfers_created_total",
				Help: "Total number of accepted bridge transfers",
			},
			[]string{"src_chain", "dst_chain"},
		),
		transfersAdvanced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_transfers_advanced_total",
				Help: "Total number of transfer state advances",
			},
			[]string{"status"},
		),
		policyRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_policy_rejections_total",
				Help: "Total number of transfers rejected by the policy gate",
			},
		),
	}

	registerer.MustRegister(r.transfersCreated, r.transfersAdvanced, r.policyRejections)
	return r
}

// TransferCreated records an accepted transfer.
func (r *Recorder) TransferCreated(srcChain, dstChain string) {
	r.transfersCreated.WithLabelValues(srcChain, dstChain).Inc()
}

// TransferAdvanced records a lifecycle advance into the given status.
func (r *Recorder) TransferAdvanced(status string) {
	r.transfersAdvanced.WithLabelValues(status).Inc()
}

// PolicyRejected records a policy gate denial.
func (r *Recorder) PolicyRejected() {
	r.policyRejections.Inc()
}
