package schema

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValue_String(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 6, 789_000_000, time.FixedZone("CET", 3600))

	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"null", NullValue(), ""},
		{"string", StringValue("a"), "a"},
		{"int", IntValue(-42), "-42"},
		{"float", FloatValue(0.1), "0.1"},
		{"float exponent", FloatValue(1e21), "1e+21"},
		{"float integral", FloatValue(170), "170"},
		{"nan", FloatValue(math.NaN()), "NaN"},
		{"inf", FloatValue(math.Inf(1)), "+Inf"},
		{"neg inf", FloatValue(math.Inf(-1)), "-Inf"},
		{"geo lat", GeoLatValue(25.033), "25.033"},
		{"bool", BoolValue(true), "true"},
		{"timestamp utc", TimestampValue(ts), "2024-03-09T13:05:06.789Z"},
		{"list", ListValue([]string{"a", "1"}), `["a","1"]`},
		{"empty list", ListValue(nil), `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.String())
		})
	}
}

func TestTimestampValue_TruncatesToMillis(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 1_999_999, time.UTC)
	v := TimestampValue(ts)
	assert.Equal(t, int64(1704067200001), v.Millis)
	assert.Equal(t, time.UTC, v.Time().Location())
}
