package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Import results used as the "result" label.
const (
	ResultCreated   = "created"
	ResultDuplicate = "duplicate"
)

// Import metrics
var (
	MessagesImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailvault_messages_imported_total",
			Help: "Total number of messages stored, by whether the raw message was new",
		},
		[]string{"result"},
	)

	FetchGaps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailvault_fetch_gaps_total",
			Help: "Total number of searched UIDs the server returned no body for",
		},
	)

	FoldersSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailvault_folders_skipped_total",
			Help: "Total number of folders skipped because they could not be selected",
		},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailvault_batch_duration_seconds",
			Help:    "Time to fetch and store one batch of messages",
			Buckets: prometheus.DefBuckets,
		},
	)

	CheckpointUID = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mailvault_checkpoint_uid",
			Help: "Last fully imported UID per mailbox",
		},
		[]string{"account", "mailbox"},
	)
)

// Threading metrics
var (
	ThreadsAssigned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailvault_threads_assigned_total",
			Help: "Total number of messages moved to a different thread by a rebuild",
		},
	)
)
