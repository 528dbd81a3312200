// Package columnar serializes converted batches into columnar file formats
// and reads them back.
//
// Supported formats:
//   - arrow: Arrow IPC file format (random access, the default output)
//   - arrow_stream: Arrow IPC stream format (one message per batch)
//   - parquet: Apache Parquet through pqarrow
//   - avro: Avro object container files through goavro
//
// A Serializer writes batches that share one schema. Batches inferred with
// different schemas go to separate serializers.
package columnar

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	arrowbatch "github.com/ajitpratap0/docarrow/pkg/columnar"
	"github.com/ajitpratap0/docarrow/pkg/errors"
)

// Format represents a columnar storage format
type Format string

const (
	// Arrow is the Arrow IPC file format
	Arrow Format = "arrow"
	// ArrowStream is the Arrow IPC stream format
	ArrowStream Format = "arrow_stream"
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// Avro is Apache Avro format
	Avro Format = "avro"
)

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case Arrow, ArrowStream, Parquet, Avro:
		return f, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported columnar format: %s", name)
	}
}

// Serializer writes batches in one columnar format
type Serializer interface {
	// WriteBatch appends a batch. The batch stays owned by the caller.
	WriteBatch(b *arrowbatch.Batch) error
	// Close finishes the file footer. It does not close the underlying writer.
	Close() error
	// Format returns the columnar format
	Format() Format
	// BytesWritten returns bytes written to the underlying writer
	BytesWritten() int64
	// RowsWritten returns rows written
	RowsWritten() int64
}

// WriterConfig configures serializers
type WriterConfig struct {
	Format Format
	// Codec is the format-internal compression: snappy, zstd, gzip or none
	// for parquet; snappy, deflate or none for avro; zstd, lz4 or none for
	// arrow. Empty picks the format default.
	Codec string
	// RowGroupLength caps parquet row groups (0 = one group per batch)
	RowGroupLength int64
	Allocator      memory.Allocator
}

// DefaultWriterConfig returns the configuration of the default output
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Format:    Arrow,
		Allocator: memory.DefaultAllocator,
	}
}

// NewSerializer creates a serializer writing to w
func NewSerializer(w io.Writer, config *WriterConfig) (Serializer, error) {
	if config == nil {
		config = DefaultWriterConfig()
	}
	if config.Allocator == nil {
		config.Allocator = memory.DefaultAllocator
	}

	switch config.Format {
	case Arrow, ArrowStream:
		return newArrowWriter(w, config)
	case Parquet:
		return newParquetWriter(w, config)
	case Avro:
		return newAvroWriter(w, config)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported columnar format: %s", config.Format)
	}
}

// Reader iterates over the record batches of a serialized file
type Reader interface {
	Schema() *arrow.Schema
	// Next returns the next record, or io.EOF. The record is valid until
	// the following call to Next.
	Next() (arrow.Record, error)
	Close() error
}

// NewReader opens serialized data. Avro files are read with goavro directly
// and are not supported here.
func NewReader(data []byte, format Format, mem memory.Allocator) (Reader, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	switch format {
	case Arrow:
		return newArrowFileReader(data, mem)
	case ArrowStream:
		return newArrowStreamReader(data, mem)
	case Parquet:
		return newParquetReader(data, mem)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "cannot read %s files", format)
	}
}

// FormatInfo provides information about columnar formats
type FormatInfo struct {
	Format        Format
	Name          string
	FileExtension string
	MIMEType      string
}

// GetFormatInfo returns information about a columnar format
func GetFormatInfo(format Format) *FormatInfo {
	switch format {
	case Arrow:
		return &FormatInfo{Format: Arrow, Name: "Apache Arrow IPC file", FileExtension: ".arrow", MIMEType: "application/vnd.apache.arrow.file"}
	case ArrowStream:
		return &FormatInfo{Format: ArrowStream, Name: "Apache Arrow IPC stream", FileExtension: ".arrows", MIMEType: "application/vnd.apache.arrow.stream"}
	case Parquet:
		return &FormatInfo{Format: Parquet, Name: "Apache Parquet", FileExtension: ".parquet", MIMEType: "application/vnd.apache.parquet"}
	case Avro:
		return &FormatInfo{Format: Avro, Name: "Apache Avro", FileExtension: ".avro", MIMEType: "application/avro"}
	default:
		return nil
	}
}

// countingWriter tracks bytes passed to the underlying writer
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// schemaGuard pins the schema of the first batch
type schemaGuard struct {
	schema *arrow.Schema
	rows   int64
}

func (g *schemaGuard) check(b *arrowbatch.Batch) (first bool, err error) {
	s := b.ArrowSchema()
	if g.schema == nil {
		g.schema = s
		return true, nil
	}
	if !g.schema.Equal(s) {
		return false, errors.New(errors.ErrorTypeSerialization, "batch schema differs from the first batch of this file")
	}
	return false, nil
}
