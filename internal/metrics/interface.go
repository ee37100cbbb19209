package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncUploads()
	IncMatchesProcessed()
	IncRowsRejected(reason string)
	IncStandingsRecomputed()
	ObserveProcessingDuration(duration float64)
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}

// Reasons a row can be rejected during an upload.
const (
	ReasonInvalid   = "invalid"
	ReasonLookup    = "lookup"
	ReasonDuplicate = "duplicate"
	ReasonConflict  = "conflict"
	ReasonStore     = "store"
	ReasonCancelled = "cancelled"
)
