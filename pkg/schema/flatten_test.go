package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/models"
	"github.com/ajitpratap0/docarrow/pkg/pool"
)

func flatten(t *testing.T, rec *models.Record, opts ...FlattenerOption) (*FlattenedRecord, []Diagnostic) {
	t.Helper()
	out, diags, err := NewFlattener(nil, opts...).Flatten(*rec)
	require.NoError(t, err)
	return out, diags
}

func TestFlatten_Scalars(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := models.NewRecord(6).
		Set("name", "HY").
		Set("age", int32(28)).
		Set("score", 9.5).
		Set("active", true).
		Set("created", ts).
		Set("deleted", nil)

	out, diags := flatten(t, rec)
	assert.Empty(t, diags)
	assert.Equal(t, []string{"name", "age", "score", "active", "created", "deleted"}, out.Names())

	v, _ := out.Get("age")
	assert.Equal(t, IntValue(28), v)
	v, _ = out.Get("created")
	assert.Equal(t, KindTimestampMillis, v.Kind)
	assert.Equal(t, ts.UnixMilli(), v.Millis)
	v, _ = out.Get("deleted")
	assert.True(t, v.IsNull())
}

func TestFlatten_Nested(t *testing.T) {
	rec := models.NewRecord(1).Set("profile", models.NewRecord(2).
		Set("height", 170).
		Set("address", map[string]interface{}{"zip": "10001", "city": "NYC"}))

	out, _ := flatten(t, rec)
	assert.Equal(t, []string{"profile_height", "profile_address_city", "profile_address_zip"}, out.Names())

	v, ok := out.Get("profile_height")
	require.True(t, ok)
	assert.Equal(t, KindInt64, v.Kind)
}

func TestFlatten_CustomSeparator(t *testing.T) {
	rec := models.NewRecord(1).
		Set("a", models.NewRecord(1).Set("b", 1)).
		Set("loc", models.NewGeoPoint(1, 2))

	out, _ := flatten(t, rec, WithSeparator("."))
	assert.Equal(t, []string{"a.b", "loc.lat", "loc.lon"}, out.Names())
}

func TestFlatten_GeoPoint(t *testing.T) {
	rec := models.NewRecord(1).Set("location", models.NewGeoPoint(25.03, 121.56))

	out, _ := flatten(t, rec)
	assert.Equal(t, []string{"location_lat", "location_lon"}, out.Names())

	lat, _ := out.Get("location_lat")
	lon, _ := out.Get("location_lon")
	assert.Equal(t, GeoLatValue(25.03), lat)
	assert.Equal(t, GeoLonValue(121.56), lon)
}

func TestFlatten_Lists(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := models.NewRecord(2).
		Set("tags", []interface{}{"a", 1, nil, 2.5, true, ts,
			[]interface{}{"x", 1},
			map[string]interface{}{"k": "v"},
			models.NewGeoPoint(1, 2),
		}).
		Set("names", []string{"b", "c"})

	out, diags := flatten(t, rec)
	assert.Empty(t, diags)

	tags, _ := out.Get("tags")
	assert.Equal(t, KindListOfString, tags.Kind)
	assert.Equal(t, []string{
		"a", "1", "2.5", "true", "2024-01-01T00:00:00.000Z",
		`["x",1]`, `{"k":"v"}`, `{"lat":1,"lon":2}`,
	}, tags.List)

	names, _ := out.Get("names")
	assert.Equal(t, []string{"b", "c"}, names.List)
}

func TestFlatten_UnsupportedDropped(t *testing.T) {
	rec := models.NewRecord(3).
		Set("blob", []byte{1, 2}).
		Set("ok", "yes").
		Set("items", []interface{}{"a", uint64(7)})

	out, diags := flatten(t, rec)
	assert.Equal(t, []string{"ok", "items"}, out.Names())

	require.Len(t, diags, 2)
	assert.Equal(t, "blob", diags[0].Field)
	assert.Equal(t, errors.ErrorTypeUnsupportedValue, diags[0].Kind)
	assert.Contains(t, diags[0].Reason, "[]uint8")
	assert.Equal(t, "items", diags[1].Field)

	items, _ := out.Get("items")
	assert.Equal(t, []string{"a"}, items.List)
}

func TestFlatten_StructuralErrors(t *testing.T) {
	cyclic := models.NewRecord(1)
	cyclic.Set("self", cyclic)

	cyclicMap := map[string]interface{}{}
	cyclicMap["self"] = cyclicMap

	cyclicList := make([]interface{}, 1)
	cyclicList[0] = cyclicList

	tests := []struct {
		name   string
		rec    *models.Record
		field  string
		reason string
	}{
		{"record cycle", models.NewRecord(1).Set("root", cyclic), "root_self", "cycle"},
		{"map cycle", models.NewRecord(1).Set("m", cyclicMap), "m_self", "cycle"},
		{"list cycle", models.NewRecord(1).Set("l", cyclicList), "l", "cycle"},
		{
			"missing longitude",
			models.NewRecord(1).Set("loc", models.GeoPoint{Lat: 1, HasLat: true}),
			"loc", "missing longitude",
		},
		{
			"missing latitude",
			models.NewRecord(1).Set("loc", models.GeoPoint{Lng: 1, HasLng: true}),
			"loc", "missing latitude",
		},
		{
			"collision with nested",
			models.NewRecord(2).Set("k_g", 1).Set("k", models.NewRecord(1).Set("g", 2)),
			"k_g", "collision",
		},
		{
			"collision with geo",
			models.NewRecord(2).Set("loc", models.NewGeoPoint(1, 2)).Set("loc_lon", "x"),
			"loc_lon", "collision",
		},
		{"duplicate property", models.NewRecord(2).Set("a", 1).Set("a", 2), "a", "collision"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := NewFlattener(nil).Flatten(*tt.rec)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.IsType(err, errors.ErrorTypeStructural))
			assert.Contains(t, err.Error(), tt.reason)

			var e *errors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.field, e.Detail("field"))
		})
	}
}

func TestFlatten_SharedSubrecordIsNotACycle(t *testing.T) {
	shared := models.NewRecord(1).Set("v", 1)
	rec := models.NewRecord(2).Set("a", shared).Set("b", shared)

	out, _ := flatten(t, rec)
	assert.Equal(t, []string{"a_v", "b_v"}, out.Names())
}

func TestFlatten_InternsNamesInArena(t *testing.T) {
	arena := pool.NewArena()
	defer arena.Release()

	f := NewFlattener(arena)
	for i := 0; i < 3; i++ {
		_, _, err := f.Flatten(*models.NewRecord(1).Set("p", models.NewRecord(1).Set("q", i)))
		require.NoError(t, err)
	}

	// "p" and "p_q", reused by the second and third record
	stats := arena.Names().Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 4, stats.Hits)
	assert.Equal(t, 2, stats.Misses)
}

func TestFlatten_EmptyNameStillNests(t *testing.T) {
	rec := models.NewRecord(2).
		Set("a", 1).
		Set("", models.NewRecord(1).Set("a", 2))

	for _, arena := range []*pool.Arena{nil, pool.NewArena()} {
		out, _, err := NewFlattener(arena).Flatten(*rec)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "_a"}, out.Names())

		nested, _ := out.Get("_a")
		assert.Equal(t, int64(2), nested.Int)
		if arena != nil {
			arena.Release()
		}
	}
}
