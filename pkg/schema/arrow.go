package schema

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
)

// Field metadata keys written to the Arrow schema
const (
	MetaKind    = "docarrow.kind"
	MetaWidened = "docarrow.widened"
)

// ArrowType returns the Arrow storage type of a resolved kind
func (k FieldKind) ArrowType() arrow.DataType {
	switch k {
	case KindString:
		return arrow.BinaryTypes.String
	case KindInt64:
		return arrow.PrimitiveTypes.Int64
	case KindFloat64, KindGeoLat, KindGeoLon:
		return arrow.PrimitiveTypes.Float64
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	case KindTimestampMillis:
		return arrow.FixedWidthTypes.Timestamp_ms
	case KindListOfString:
		return arrow.ListOf(arrow.BinaryTypes.String)
	case KindNull:
		panic("schema: null kind has no storage type")
	default:
		panic(fmt.Sprintf("schema: unknown field kind %d", int(k)))
	}
}

// ArrowField returns the Arrow field for f, carrying its kind and widening
// flag as metadata
func (f Field) ArrowField() arrow.Field {
	return arrow.Field{
		Name:     f.Name,
		Type:     f.Kind.ArrowType(),
		Nullable: f.Nullable,
		Metadata: arrow.NewMetadata(
			[]string{MetaKind, MetaWidened},
			[]string{f.Kind.String(), strconv.FormatBool(f.Widened)},
		),
	}
}

// ArrowSchema returns the Arrow schema of s
func (s *UnifiedSchema) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = f.ArrowField()
	}
	return arrow.NewSchema(fields, nil)
}

// FromArrowSchema recovers a UnifiedSchema from an Arrow schema written by
// ArrowSchema. Fields without kind metadata are mapped from their Arrow type.
func FromArrowSchema(as *arrow.Schema) (*UnifiedSchema, error) {
	fields := make([]Field, 0, as.NumFields())
	for _, af := range as.Fields() {
		f := Field{Name: af.Name, Nullable: af.Nullable}

		if i := af.Metadata.FindKey(MetaKind); i >= 0 {
			k, ok := ParseFieldKind(af.Metadata.Values()[i])
			if !ok || k == KindNull {
				return nil, fmt.Errorf("field %q: unknown kind %q", af.Name, af.Metadata.Values()[i])
			}
			f.Kind = k
		} else {
			k, err := kindOfArrowType(af.Type)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", af.Name, err)
			}
			f.Kind = k
		}
		if i := af.Metadata.FindKey(MetaWidened); i >= 0 {
			f.Widened, _ = strconv.ParseBool(af.Metadata.Values()[i])
		}
		fields = append(fields, f)
	}
	return NewUnifiedSchema(fields), nil
}

func kindOfArrowType(dt arrow.DataType) (FieldKind, error) {
	switch dt.ID() {
	case arrow.STRING:
		return KindString, nil
	case arrow.INT64:
		return KindInt64, nil
	case arrow.FLOAT64:
		return KindFloat64, nil
	case arrow.BOOL:
		return KindBool, nil
	case arrow.TIMESTAMP:
		return KindTimestampMillis, nil
	case arrow.LIST:
		return KindListOfString, nil
	}
	return KindNull, fmt.Errorf("unsupported arrow type %s", dt)
}
