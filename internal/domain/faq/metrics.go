package faq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	selectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faqbot",
			Subsystem: "selector",
			Name:      "selections_total",
			Help:      "Answers served, by producing tier",
		},
		[]string{"source"},
	)

	knnDistance = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "faqbot",
			Subsystem: "selector",
			Name:      "knn_distance",
			Help:      "Cosine distance of the nearest FAQ entry",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	generativeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faqbot",
			Subsystem: "selector",
			Name:      "generative_latency_seconds",
			Help:      "Latency of generative answers",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		},
		[]string{"result"},
	)

	rebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faqbot",
			Subsystem: "index",
			Name:      "rebuilds_total",
			Help:      "Index rebuild attempts",
		},
		[]string{"result"},
	)

	rebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "faqbot",
			Subsystem: "index",
			Name:      "rebuild_duration_seconds",
			Help:      "Time to load the FAQ table and build an index",
			Buckets:   prometheus.DefBuckets,
		},
	)

	indexEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "faqbot",
			Subsystem: "index",
			Name:      "entries",
			Help:      "Entries in the published index",
		},
	)

	writeBacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faqbot",
			Subsystem: "learning",
			Name:      "write_backs_total",
			Help:      "Generated answers persisted into the FAQ table",
		},
		[]string{"result"},
	)
)

func recordSelection(source Source) {
	selectionsTotal.WithLabelValues(string(source)).Inc()
}
