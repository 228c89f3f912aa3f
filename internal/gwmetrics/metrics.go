// Package gwmetrics exposes Prometheus instrumentation for the parts of
// the core that have an externally observable cost: KV store latency,
// SMT proof sizes, per-tx cycle consumption, mempool depth, and
// challenge-build latency (SPEC_FULL.md §0).
package gwmetrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every collector the node registers. A single
// instance is constructed at node start and injected into every
// component that needs it; nothing here is a package-level global.
type Registry struct {
	Reg *prometheus.Registry

	KVOpDuration      *prometheus.HistogramVec
	SMTProofSize       prometheus.Histogram
	TxCyclesUsed       prometheus.Histogram
	MempoolQueueDepth  prometheus.Gauge
	ChallengeBuildSecs *prometheus.HistogramVec
	BlocksProduced     prometheus.Counter
	TxsRejected        *prometheus.CounterVec
}

// NewRegistry constructs and registers every collector.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		Reg: reg,
		KVOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gwnode",
			Subsystem: "kv",
			Name:      "op_duration_seconds",
			Help:      "Latency of key-value store operations by op and column.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "column"}),
		SMTProofSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gwnode",
			Subsystem: "smt",
			Name:      "proof_size_bytes",
			Help:      "Size in bytes of compiled SMT merkle proofs.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 12),
		}),
		TxCyclesUsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gwnode",
			Subsystem: "generator",
			Name:      "tx_cycles_used",
			Help:      "Execution cycles consumed per transaction.",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 16),
		}),
		MempoolQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gwnode",
			Subsystem: "mempool",
			Name:      "queue_depth",
			Help:      "Number of transactions currently queued in the mempool.",
		}),
		ChallengeBuildSecs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gwnode",
			Subsystem: "challenge",
			Name:      "build_duration_seconds",
			Help:      "Latency of building a challenge context by target type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target_type"}),
		BlocksProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gwnode",
			Subsystem: "producer",
			Name:      "blocks_produced_total",
			Help:      "Total number of blocks successfully produced.",
		}),
		TxsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gwnode",
			Subsystem: "producer",
			Name:      "txs_rejected_total",
			Help:      "Transactions dropped from block production by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		r.KVOpDuration, r.SMTProofSize, r.TxCyclesUsed, r.MempoolQueueDepth,
		r.ChallengeBuildSecs, r.BlocksProduced, r.TxsRejected,
	)
	return r
}
