// Package encoder encodes drained chunks into segment objects for the
// object-store sinks.
//
// # Supported Formats
//
//   - Raw: the chunk bytes as drained, optionally gzip compressed
//   - Avro: an Object Container File with one record per line
//   - Parquet: a columnar file with one row per line
//
// # Records
//
// A chunk is one drain pass worth of bytes. The Avro and Parquet encoders
// split it on newlines; each line becomes a record carrying the chunk
// sequence, the line index within the chunk, the drain time and the line
// bytes without the trailing newline. A final unterminated line is kept
// as its own record, so a line that spans two drains appears as two
// records in consecutive segments.
//
// # Encoder Factory
//
//	factory := encoder.NewFactory(encoder.FormatParquet, "snappy")
//	enc, err := factory.CreateEncoder()
//	if err != nil {
//	    return err
//	}
//
//	var buf bytes.Buffer
//	n, err := enc.Encode(&buf, chunk)
//
// # Compression Options
//
//	Raw:     "gzip", "none"
//	Avro:    "gzip", "none"
//	Parquet: "snappy", "gzip", "lz4", "zstd", "none"
//
// # File Extensions
//
//	rawEnc.FileExtension()      // ".log" or ".log.gz"
//	avroEnc.FileExtension()     // ".avro" or ".avro.gz"
//	parquetEnc.FileExtension()  // ".parquet"
//
// # Thread Safety
//
// Encoder instances are safe for concurrent use.
package encoder
