package sink

// Backend names used in logs, errors and metric labels.
const (
	BackendFile   = "file"
	BackendS3     = "s3"
	BackendAzure  = "azure"
	BackendGCS    = "gcs"
	BackendKafka  = "kafka"
	BackendNATS   = "nats"
	BackendPebble = "pebble"
)

// MetricsCollector defines metrics operations for sinks.
type MetricsCollector interface {
	IncChunksWritten(backend string, status string)
	ObserveChunkSize(backend string, size float64)
	ObserveAppendDuration(backend string, duration float64)
	IncSinkErrors(backend string, operation string)
}

// recorder wraps an optional MetricsCollector for one backend.
type recorder struct {
	backend string
	metrics MetricsCollector
}

func (r recorder) success(size int, seconds float64) {
	if r.metrics == nil {
		return
	}
	r.metrics.IncChunksWritten(r.backend, "success")
	r.metrics.ObserveChunkSize(r.backend, float64(size))
	r.metrics.ObserveAppendDuration(r.backend, seconds)
}

func (r recorder) failure(operation string) {
	if r.metrics == nil {
		return
	}
	r.metrics.IncChunksWritten(r.backend, "error")
	r.metrics.IncSinkErrors(r.backend, operation)
}
