package schema

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// TimestampLayout is the canonical string form of a timestamp: RFC 3339 in
// UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Value is one flat, classified value. Kind selects which payload is set.
type Value struct {
	Kind   FieldKind
	Str    string
	Int    int64
	Float  float64
	Bool   bool
	Millis int64
	List   []string
}

// NullValue returns the null placeholder
func NullValue() Value { return Value{Kind: KindNull} }

// StringValue wraps a string
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// IntValue wraps an integer
func IntValue(i int64) Value { return Value{Kind: KindInt64, Int: i} }

// FloatValue wraps a float
func FloatValue(f float64) Value { return Value{Kind: KindFloat64, Float: f} }

// BoolValue wraps a boolean
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// TimestampValue wraps a time as Unix milliseconds
func TimestampValue(t time.Time) Value {
	return Value{Kind: KindTimestampMillis, Millis: t.UnixMilli()}
}

// GeoLatValue wraps the latitude half of a geo-point
func GeoLatValue(lat float64) Value { return Value{Kind: KindGeoLat, Float: lat} }

// GeoLonValue wraps the longitude half of a geo-point
func GeoLonValue(lon float64) Value { return Value{Kind: KindGeoLon, Float: lon} }

// ListValue wraps already stringified list elements
func ListValue(items []string) Value { return Value{Kind: KindListOfString, List: items} }

// IsNull reports whether v is the null placeholder
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Time returns the timestamp payload as a UTC time
func (v Value) Time() time.Time {
	return time.UnixMilli(v.Millis).UTC()
}

// String returns the canonical stringification used when a field is
// promoted to String. Null renders as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindString:
		return v.Str
	case KindInt64:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat64, KindGeoLat, KindGeoLon:
		return FormatFloat(v.Float)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindTimestampMillis:
		return FormatMillis(v.Millis)
	case KindListOfString:
		return FormatList(v.List)
	default:
		panic(fmt.Sprintf("schema: unknown field kind %d", int(v.Kind)))
	}
}

// FormatFloat renders f in its shortest round-trip form
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatMillis renders Unix milliseconds as a canonical timestamp
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimestampLayout)
}

// FormatList renders list elements as a JSON array of strings
func FormatList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		// a []string always marshals
		panic(err)
	}
	return string(b)
}

// jsonFloat keeps non-finite floats representable in JSON
func jsonFloat(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return FormatFloat(f)
	}
	return f
}
