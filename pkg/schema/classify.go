package schema

import (
	"math"
	"strconv"
	"time"

	"github.com/ajitpratap0/docarrow/pkg/models"
)

// Classify maps one dynamic value to its ValueKind. It never fails; values
// outside the supported set classify as ValueUnsupported. Typed nil
// pointers, maps and slices classify as ValueNull.
func Classify(v interface{}) ValueKind {
	switch x := v.(type) {
	case nil:
		return ValueNull
	case string, models.Key:
		return ValueString
	case *models.Key:
		return nilOr(x == nil, ValueString)
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return ValueInt
	case float32, float64:
		return ValueFloat
	case bool:
		return ValueBool
	case time.Time:
		return ValueTimestamp
	case *time.Time:
		return nilOr(x == nil, ValueTimestamp)
	case models.GeoPoint:
		return ValueGeoPoint
	case *models.GeoPoint:
		return nilOr(x == nil, ValueGeoPoint)
	case []interface{}:
		return nilOr(x == nil, ValueList)
	case []string:
		return nilOr(x == nil, ValueList)
	case map[string]interface{}:
		return nilOr(x == nil, ValueRecord)
	case models.Record:
		return ValueRecord
	case *models.Record:
		return nilOr(x == nil, ValueRecord)
	default:
		return ValueUnsupported
	}
}

func nilOr(isNil bool, k ValueKind) ValueKind {
	if isNil {
		return ValueNull
	}
	return k
}

// The helpers below unwrap a value whose kind Classify already decided.

func asString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case models.Key:
		return x.String()
	case *models.Key:
		return x.String()
	}
	return ""
}

func asInt(v interface{}) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	}
	return 0
}

func asFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float32:
		return widenFloat32(x)
	case float64:
		return x
	}
	return 0
}

// widenFloat32 returns the float64 nearest to the shortest decimal form of
// f, so float32(0.1) becomes 0.1 rather than 0.10000000149011612.
func widenFloat32(f float32) float64 {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return float64(f)
	}
	w, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return w
}

func asTime(v interface{}) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case *time.Time:
		return *x
	}
	return time.Time{}
}

func asGeoPoint(v interface{}) models.GeoPoint {
	switch x := v.(type) {
	case models.GeoPoint:
		return x
	case *models.GeoPoint:
		return *x
	}
	return models.GeoPoint{}
}
