package columnar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	arrowbatch "github.com/ajitpratap0/docarrow/pkg/columnar"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/schema"
)

// AvroRecordName names the top-level Avro record of every file
const AvroRecordName = "docarrow.Batch"

// avroWriter implements Serializer for Avro object container files. Avro
// is row oriented, so each batch is transposed row by row.
type avroWriter struct {
	out       *countingWriter
	config    *WriterConfig
	guard     schemaGuard
	ocfWriter *goavro.OCFWriter
	fields    []avroField
}

// avroField maps one batch column onto an Avro field
type avroField struct {
	name   string // sanitized Avro name
	kind   schema.FieldKind
	branch string // union branch name of non-null values
}

func newAvroWriter(w io.Writer, config *WriterConfig) (*avroWriter, error) {
	if _, err := getAvroCompression(config.Codec); err != nil {
		return nil, err
	}
	return &avroWriter{out: &countingWriter{w: w}, config: config}, nil
}

func (aw *avroWriter) open(s *schema.UnifiedSchema) error {
	avroSchema, fields, err := avroSchemaFields(s)
	if err != nil {
		return err
	}

	codec, err := goavro.NewCodec(avroSchema)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to create Avro codec")
	}

	compression, _ := getAvroCompression(aw.config.Codec)
	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               aw.out,
		Codec:           codec,
		CompressionName: compression,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to create Avro writer")
	}

	aw.ocfWriter = ocfWriter
	aw.fields = fields
	return nil
}

func (aw *avroWriter) WriteBatch(b *arrowbatch.Batch) error {
	first, err := aw.guard.check(b)
	if err != nil {
		return err
	}
	if first {
		if err := aw.open(b.Schema); err != nil {
			return err
		}
	}
	if b.NumRows == 0 {
		return nil
	}

	rows := make([]interface{}, b.NumRows)
	for i := range rows {
		native := make(map[string]interface{}, len(aw.fields))
		for c, f := range aw.fields {
			native[f.name] = avroValue(f, b.Columns[c], i)
		}
		rows[i] = native
	}

	if err := aw.ocfWriter.Append(rows); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to write Avro block")
	}
	aw.guard.rows += int64(b.NumRows)
	return nil
}

// Close is a no-op: goavro writes complete blocks on every Append
func (aw *avroWriter) Close() error {
	return nil
}

func (aw *avroWriter) Format() Format {
	return Avro
}

func (aw *avroWriter) BytesWritten() int64 {
	return aw.out.n
}

func (aw *avroWriter) RowsWritten() int64 {
	return aw.guard.rows
}

// AvroSchema renders a unified schema as an Avro record schema. Every field
// is a union with null. Field names are sanitized to the Avro name grammar;
// the original name is kept in the field's "doc".
func AvroSchema(s *schema.UnifiedSchema) (string, error) {
	js, _, err := avroSchemaFields(s)
	return js, err
}

func avroSchemaFields(s *schema.UnifiedSchema) (string, []avroField, error) {
	fields := make([]avroField, len(s.Fields))
	defs := make([]map[string]interface{}, len(s.Fields))
	used := make(map[string]int, len(s.Fields))

	for i, f := range s.Fields {
		typ, branch, err := avroType(f.Kind)
		if err != nil {
			return "", nil, err
		}
		name := uniqueAvroName(avroName(f.Name), used)

		fields[i] = avroField{name: name, kind: f.Kind, branch: branch}
		defs[i] = map[string]interface{}{
			"name":    name,
			"type":    []interface{}{"null", typ},
			"default": nil,
			"doc":     f.Name,
		}
	}

	out, err := json.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   AvroRecordName,
		"fields": defs,
	})
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to encode Avro schema")
	}
	return string(out), fields, nil
}

func avroType(k schema.FieldKind) (typ interface{}, branch string, err error) {
	switch k {
	case schema.KindString:
		return "string", "string", nil
	case schema.KindInt64:
		return "long", "long", nil
	case schema.KindFloat64, schema.KindGeoLat, schema.KindGeoLon:
		return "double", "double", nil
	case schema.KindBool:
		return "boolean", "boolean", nil
	case schema.KindTimestampMillis:
		return map[string]interface{}{"type": "long", "logicalType": "timestamp-millis"}, "long.timestamp-millis", nil
	case schema.KindListOfString:
		return map[string]interface{}{"type": "array", "items": "string"}, "array", nil
	default:
		return nil, "", errors.Newf(errors.ErrorTypeSerialization, "no Avro type for kind %s", k)
	}
}

// uniqueAvroName returns base, or base_N with the smallest free N, and
// marks the result as used. used maps a name to the next suffix to try.
func uniqueAvroName(base string, used map[string]int) string {
	name := base
	if _, taken := used[name]; taken {
		n := used[base]
		for {
			name = fmt.Sprintf("%s_%d", base, n)
			n++
			if _, taken := used[name]; !taken {
				break
			}
		}
		used[base] = n
	}
	used[name] = 1
	return name
}

// avroName replaces characters outside [A-Za-z0-9_] and guards a leading digit
func avroName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func avroValue(f avroField, col arrow.Array, row int) interface{} {
	if col.IsNull(row) {
		return nil
	}
	var v interface{}
	switch c := col.(type) {
	case *array.String:
		v = c.Value(row)
	case *array.Int64:
		v = c.Value(row)
	case *array.Float64:
		v = c.Value(row)
	case *array.Boolean:
		v = c.Value(row)
	case *array.Timestamp:
		v = time.UnixMilli(int64(c.Value(row))).UTC()
	case *array.List:
		start, end := c.ValueOffsets(row)
		items := c.ListValues().(*array.String)
		list := make([]interface{}, 0, end-start)
		for j := start; j < end; j++ {
			list = append(list, items.Value(int(j)))
		}
		v = list
	default:
		return nil
	}
	return goavro.Union(f.branch, v)
}

func getAvroCompression(codec string) (string, error) {
	switch codec {
	case "", "snappy":
		return goavro.CompressionSnappyLabel, nil
	case "deflate":
		return goavro.CompressionDeflateLabel, nil
	case "none":
		return goavro.CompressionNullLabel, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "avro does not support codec %q", codec)
	}
}
