package mcts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pomcpgo/belief"
)

var (
	simulationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pomcp",
		Subsystem: "planner",
		Name:      "simulations_total",
		Help:      "Simulations run from the root.",
	})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pomcp",
		Subsystem: "planner",
		Name:      "search_duration_seconds",
		Help:      "Wall time of one search.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	treeNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pomcp",
		Subsystem: "planner",
		Name:      "tree_nodes",
		Help:      "Live nodes in the most recently searched tree.",
	})

	// Labels:
	//   - strategy: "redraw", "perturb" or "duplicate"
	reinvigorationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pomcp",
		Subsystem: "belief",
		Name:      "reinvigorations_total",
		Help:      "Belief updates that had to reinvigorate, by strategy.",
	}, []string{"strategy"})

	depletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pomcp",
		Subsystem: "belief",
		Name:      "depletions_total",
		Help:      "Belief updates that ended with no particles.",
	})

	rolloutTruncationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pomcp",
		Subsystem: "rollout",
		Name:      "truncations_total",
		Help:      "Adaptive rollouts stopped early by the reward window.",
	})
)

func recordUpdate(rep belief.Report) {
	if rep.Redrawn > 0 {
		reinvigorationsTotal.WithLabelValues("redraw").Inc()
	}
	if rep.Padded > 0 {
		strategy := "duplicate"
		if rep.Perturbed {
			strategy = "perturb"
		}
		reinvigorationsTotal.WithLabelValues(strategy).Inc()
	}
}
