package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingestion and retrieval metrics.
var (
	FilesIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_ingested_total",
			Help:      "Uploaded files by outcome",
		},
		[]string{"status"}, // indexed / stored / failed
	)

	ChunksIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks written to the vector index",
		},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time to ingest one file end to end",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat turns by retrieval outcome",
		},
		[]string{"retrieval"}, // skipped / hit / empty / degraded
	)

	OrphansPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_chunks_purged_total",
			Help:      "Chunks removed because their document left the registry",
		},
	)
)

var registerPipelineOnce sync.Once

// RegisterPipelineMetrics registers ingestion and chat metrics. Safe to call more than once.
func RegisterPipelineMetrics() {
	registerPipelineOnce.Do(func() {
		prometheus.MustRegister(
			FilesIngestedTotal,
			ChunksIndexedTotal,
			IngestDuration,
			ChatRequestsTotal,
			OrphansPurgedTotal,
		)
	})
}
