// Package sink implements the append-only destinations drained log bytes
// are written to.
//
// Every sink implements pkg/sink.Sink. Append receives one drained chunk
// at a time, in drain order, and must not retain the slice.
//
// # Stream Sinks
//
// These keep the drained byte stream intact:
//
//   - FileSink: appends to a local file opened with O_APPEND
//   - AzureSink: appends blocks to an Azure append blob
//   - NATSSink: publishes chunks to a JetStream subject
//   - PebbleSink: stores chunks under sequence keys in a Pebble database
//
// # Segment Sinks
//
// These upload each chunk as its own object, encoded by internal/encoder:
//
//   - S3Sink: Amazon S3 through the multipart upload manager
//   - GCSSink: Google Cloud Storage object writers
//
// Object keys come from Router and sort in drain order:
//
//	<base_path>/dt=YYYY-MM-DD/<instance>-<sequence><ext>
//
// # Factory
//
// Factory implements pkg/sink.Opener and builds the configured backend
// each time the logger starts.
package sink
