// Package schema infers a unified columnar schema from schema-less records.
//
// Conversion of one batch runs in three passes. Classify and the Flattener
// turn every record into a FlattenedRecord of scalar Values. The Inferencer
// scans all flattened records and resolves one FieldKind per flat name,
// promoting conflicting fields to String. The columnar package then builds
// one Arrow column per field of the resulting UnifiedSchema.
package schema

import "fmt"

// ValueKind is the semantic kind of one dynamic value as read from a source
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueInt
	ValueFloat
	ValueBool
	ValueTimestamp
	ValueGeoPoint
	ValueList
	ValueRecord
	// ValueUnsupported marks values outside the closed set. The flattener
	// drops them and reports a diagnostic.
	ValueUnsupported
)

var valueKindNames = [...]string{
	ValueNull:        "null",
	ValueString:      "string",
	ValueInt:         "int",
	ValueFloat:       "float",
	ValueBool:        "bool",
	ValueTimestamp:   "timestamp",
	ValueGeoPoint:    "geopoint",
	ValueList:        "list",
	ValueRecord:      "record",
	ValueUnsupported: "unsupported",
}

func (k ValueKind) String() string {
	if k >= 0 && int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// FieldKinds returns the flat field kinds a value of kind k expands to.
// A geo-point yields two kinds; records yield none since they are expanded
// into their own fields; unsupported values yield none.
func (k ValueKind) FieldKinds() []FieldKind {
	switch k {
	case ValueNull:
		return []FieldKind{KindNull}
	case ValueString:
		return []FieldKind{KindString}
	case ValueInt:
		return []FieldKind{KindInt64}
	case ValueFloat:
		return []FieldKind{KindFloat64}
	case ValueBool:
		return []FieldKind{KindBool}
	case ValueTimestamp:
		return []FieldKind{KindTimestampMillis}
	case ValueGeoPoint:
		return []FieldKind{KindGeoLat, KindGeoLon}
	case ValueList:
		return []FieldKind{KindListOfString}
	case ValueRecord, ValueUnsupported:
		return nil
	default:
		panic(fmt.Sprintf("schema: unknown value kind %d", int(k)))
	}
}

// FieldKind is the kind of a flat field and of the column built for it
type FieldKind int

const (
	// KindNull is a placeholder for fields seen only as null. It never
	// survives inference.
	KindNull FieldKind = iota
	KindString
	KindInt64
	KindFloat64
	KindBool
	KindTimestampMillis
	KindGeoLat
	KindGeoLon
	KindListOfString
)

var fieldKindNames = [...]string{
	KindNull:            "null",
	KindString:          "string",
	KindInt64:           "int64",
	KindFloat64:         "float64",
	KindBool:            "bool",
	KindTimestampMillis: "timestamp_ms",
	KindGeoLat:          "geo_lat",
	KindGeoLon:          "geo_lon",
	KindListOfString:    "list<string>",
}

func (k FieldKind) String() string {
	if k >= 0 && int(k) < len(fieldKindNames) {
		return fieldKindNames[k]
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// ParseFieldKind is the inverse of FieldKind.String
func ParseFieldKind(s string) (FieldKind, bool) {
	for i, name := range fieldKindNames {
		if name == s {
			return FieldKind(i), true
		}
	}
	return KindNull, false
}
