// Package metrics exposes the Prometheus counters and gauges a running
// PRISM node emits for its dropbox, ARK, and LSP activity. This is ambient
// observability infrastructure, not part of the hard MPC/routing core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every metric a PRISM node reports. One Registry is
// constructed per process and injected into the components that need it,
// rather than relying on the default global registry.
type Registry struct {
	DropboxStores      prometheus.Counter
	DropboxStoreFails  prometheus.Counter
	DropboxFinds       prometheus.Counter
	DropboxMatches     prometheus.Counter
	DropboxRetrieves   prometheus.Counter
	PreproductBatches  prometheus.Gauge
	PreproductRemain   prometheus.Gauge
	ARKBroadcastCycles prometheus.Counter
	ARKStoreSize       prometheus.Gauge
	LSPRecomputations  prometheus.Counter
	NeighborsAlive     prometheus.Gauge
	EpochTransitions   *prometheus.CounterVec
}

// New constructs and registers a fresh metric set against reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		DropboxStores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prism_dropbox_stores_total",
			Help: "Total number of dropbox store attempts that reached quorum.",
		}),
		DropboxStoreFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prism_dropbox_store_failures_total",
			Help: "Total number of dropbox store attempts abandoned after retry budget.",
		}),
		DropboxFinds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prism_dropbox_find_rounds_total",
			Help: "Total number of oblivious-equality FIND rounds executed.",
		}),
		DropboxMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prism_dropbox_matches_total",
			Help: "Total number of fragments whose opened equality check was zero.",
		}),
		DropboxRetrieves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prism_dropbox_retrieves_total",
			Help: "Total number of fragments retrieved and returned to a client.",
		}),
		PreproductBatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prism_preproduct_batches",
			Help: "Number of live preproduct batches held by this peer.",
		}),
		PreproductRemain: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prism_preproduct_remaining",
			Help: "Total unclaimed preproducts across owned batches.",
		}),
		ARKBroadcastCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prism_ark_broadcast_cycles_total",
			Help: "Total number of ARK broadcast loop iterations.",
		}),
		ARKStoreSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prism_ark_store_size",
			Help: "Number of ARKs currently held in the local store.",
		}),
		LSPRecomputations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prism_lsp_recomputations_total",
			Help: "Total number of routing table recomputations.",
		}),
		NeighborsAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prism_neighbors_alive",
			Help: "Number of neighbors currently considered ALIVE.",
		}),
		EpochTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prism_epoch_transitions_total",
			Help: "Total number of epoch state transitions, labeled by target state.",
		}, []string{"state"}),
	}
	reg.MustRegister(
		m.DropboxStores, m.DropboxStoreFails, m.DropboxFinds, m.DropboxMatches,
		m.DropboxRetrieves, m.PreproductBatches, m.PreproductRemain,
		m.ARKBroadcastCycles, m.ARKStoreSize, m.LSPRecomputations,
		m.NeighborsAlive, m.EpochTransitions,
	)
	return m
}

// NewUnregistered builds a Registry against a private registry, for tests
// that construct many instances in the same process.
func NewUnregistered() *Registry {
	return New(prometheus.NewRegistry())
}
