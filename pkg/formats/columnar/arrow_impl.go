package columnar

import (
	"bytes"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	arrowbatch "github.com/ajitpratap0/docarrow/pkg/columnar"
	"github.com/ajitpratap0/docarrow/pkg/errors"
)

// recordWriter is the part shared by ipc.FileWriter and ipc.Writer
type recordWriter interface {
	Write(rec arrow.Record) error
	Close() error
}

// arrowWriter implements Serializer for the Arrow IPC file and stream formats
type arrowWriter struct {
	out    *countingWriter
	config *WriterConfig
	guard  schemaGuard
	writer recordWriter
}

func newArrowWriter(w io.Writer, config *WriterConfig) (*arrowWriter, error) {
	switch config.Codec {
	case "", "none", "zstd", "lz4":
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "arrow does not support codec %q", config.Codec)
	}
	return &arrowWriter{out: &countingWriter{w: w}, config: config}, nil
}

func (aw *arrowWriter) options(s *arrow.Schema) []ipc.Option {
	opts := []ipc.Option{ipc.WithSchema(s), ipc.WithAllocator(aw.config.Allocator)}
	switch aw.config.Codec {
	case "zstd":
		opts = append(opts, ipc.WithZstd())
	case "lz4":
		opts = append(opts, ipc.WithLZ4())
	}
	return opts
}

func (aw *arrowWriter) WriteBatch(b *arrowbatch.Batch) error {
	first, err := aw.guard.check(b)
	if err != nil {
		return err
	}
	if first {
		if aw.config.Format == ArrowStream {
			aw.writer = ipc.NewWriter(aw.out, aw.options(b.ArrowSchema())...)
		} else {
			fw, err := ipc.NewFileWriter(aw.out, aw.options(b.ArrowSchema())...)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to create Arrow file writer")
			}
			aw.writer = fw
		}
	}

	rec := b.Record()
	defer rec.Release()
	if err := aw.writer.Write(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to write Arrow record batch")
	}
	aw.guard.rows += int64(b.NumRows)
	return nil
}

// Close writes the footer. A writer that never saw a batch writes nothing.
func (aw *arrowWriter) Close() error {
	if aw.writer == nil {
		return nil
	}
	if err := aw.writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to close Arrow writer")
	}
	return nil
}

func (aw *arrowWriter) Format() Format {
	return aw.config.Format
}

func (aw *arrowWriter) BytesWritten() int64 {
	return aw.out.n
}

func (aw *arrowWriter) RowsWritten() int64 {
	return aw.guard.rows
}

// arrowFileReader reads the Arrow IPC file format
type arrowFileReader struct {
	reader *ipc.FileReader
	next   int
}

func newArrowFileReader(data []byte, mem memory.Allocator) (*arrowFileReader, error) {
	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to open Arrow file")
	}
	return &arrowFileReader{reader: fr}, nil
}

func (ar *arrowFileReader) Schema() *arrow.Schema {
	return ar.reader.Schema()
}

func (ar *arrowFileReader) Next() (arrow.Record, error) {
	if ar.next >= ar.reader.NumRecords() {
		return nil, io.EOF
	}
	rec, err := ar.reader.Record(ar.next)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to read Arrow record batch")
	}
	ar.next++
	return rec, nil
}

func (ar *arrowFileReader) Close() error {
	return ar.reader.Close()
}

// arrowStreamReader reads the Arrow IPC stream format
type arrowStreamReader struct {
	reader *ipc.Reader
}

func newArrowStreamReader(data []byte, mem memory.Allocator) (*arrowStreamReader, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to open Arrow stream")
	}
	return &arrowStreamReader{reader: r}, nil
}

func (ar *arrowStreamReader) Schema() *arrow.Schema {
	return ar.reader.Schema()
}

func (ar *arrowStreamReader) Next() (arrow.Record, error) {
	if ar.reader.Next() {
		return ar.reader.Record(), nil
	}
	if err := ar.reader.Err(); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to read Arrow stream")
	}
	return nil, io.EOF
}

func (ar *arrowStreamReader) Close() error {
	ar.reader.Release()
	return nil
}
