package corpus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// fragmentsIngested counts blobs accepted by Ingest
	fragmentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relic_corpus_fragments_ingested_total",
		Help: "Total encoded fragments accepted for building",
	})

	// buildFailures counts reduce jobs that failed, by stage
	buildFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relic_corpus_build_failures_total",
		Help: "Total symbol groups that failed to build, by stage",
	}, []string{"stage"})

	// symbolsBuilt is the size of the most recently built corpus
	symbolsBuilt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relic_corpus_symbols",
		Help: "Number of canonical symbols in the last built corpus",
	})

	// buildDuration tracks end-to-end Build latency
	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relic_corpus_build_duration_seconds",
		Help:    "Corpus build duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~30s
	})
)

const (
	stageDecode = "decode"
	stageMerge  = "merge"
)
