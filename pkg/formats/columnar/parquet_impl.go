package columnar

import (
	"bytes"
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	arrowbatch "github.com/ajitpratap0/docarrow/pkg/columnar"
	"github.com/ajitpratap0/docarrow/pkg/errors"
)

// parquetWriter implements Serializer for Parquet format
type parquetWriter struct {
	out        *countingWriter
	config     *WriterConfig
	guard      schemaGuard
	fileWriter *pqarrow.FileWriter
}

func newParquetWriter(w io.Writer, config *WriterConfig) (*parquetWriter, error) {
	if _, err := getParquetCompression(config.Codec); err != nil {
		return nil, err
	}
	return &parquetWriter{out: &countingWriter{w: w}, config: config}, nil
}

func (pw *parquetWriter) open(s *arrow.Schema) error {
	codec, _ := getParquetCompression(pw.config.Codec)
	opts := []parquet.WriterProperty{
		parquet.WithCompression(codec),
		parquet.WithAllocator(pw.config.Allocator),
		parquet.WithCreatedBy("docarrow"),
	}
	if pw.config.RowGroupLength > 0 {
		opts = append(opts, parquet.WithMaxRowGroupLength(pw.config.RowGroupLength))
	}

	// The stored Arrow schema keeps field kinds and timestamp units intact.
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(pw.config.Allocator),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(s, pw.out, parquet.NewWriterProperties(opts...), arrowProps)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to create Parquet writer")
	}
	pw.fileWriter = fw
	return nil
}

func (pw *parquetWriter) WriteBatch(b *arrowbatch.Batch) error {
	first, err := pw.guard.check(b)
	if err != nil {
		return err
	}
	if first {
		if err := pw.open(b.ArrowSchema()); err != nil {
			return err
		}
	}

	rec := b.Record()
	defer rec.Release()
	if err := pw.fileWriter.Write(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to write Parquet row group")
	}
	pw.guard.rows += int64(b.NumRows)
	return nil
}

func (pw *parquetWriter) Close() error {
	if pw.fileWriter == nil {
		return nil
	}
	if err := pw.fileWriter.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to close Parquet writer")
	}
	return nil
}

func (pw *parquetWriter) Format() Format {
	return Parquet
}

func (pw *parquetWriter) BytesWritten() int64 {
	return pw.out.n
}

func (pw *parquetWriter) RowsWritten() int64 {
	return pw.guard.rows
}

// parquetReader reads Parquet files back into Arrow records
type parquetReader struct {
	file    *file.Reader
	records pqarrow.RecordReader
}

func newParquetReader(data []byte, mem memory.Allocator) (*parquetReader, error) {
	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to open Parquet file")
	}

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: 4096}, mem)
	if err != nil {
		pf.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to create Parquet Arrow reader")
	}

	rr, err := fr.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		pf.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to read Parquet row groups")
	}
	return &parquetReader{file: pf, records: rr}, nil
}

func (pr *parquetReader) Schema() *arrow.Schema {
	return pr.records.Schema()
}

func (pr *parquetReader) Next() (arrow.Record, error) {
	if pr.records.Next() {
		return pr.records.Record(), nil
	}
	if err := pr.records.Err(); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to read Parquet records")
	}
	return nil, io.EOF
}

func (pr *parquetReader) Close() error {
	pr.records.Release()
	return pr.file.Close()
}

func getParquetCompression(codec string) (compress.Compression, error) {
	switch codec {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeConfig, "parquet does not support codec %q", codec)
	}
}
