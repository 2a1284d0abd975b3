package transfer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// itemCounter is a singleton for the per-item outcome counter vec.
	itemCounter *prometheus.CounterVec //nolint:gochecknoglobals
)

func countItem(step Step, outcome string) {
	if itemCounter == nil {
		itemCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfer_items_total",
				Help: "Number of transferred items, differentiated by step and outcome.",
			},
			[]string{"step", "outcome"},
		)
	}

	itemCounter.WithLabelValues(string(step), outcome).Inc()
}
