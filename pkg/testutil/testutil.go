// Package testutil provides testing utilities and record fixtures for docarrow
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/docarrow/pkg/models"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// Record builds a record from alternating names and values
func Record(kv ...interface{}) models.Record {
	rec := models.NewRecord(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		rec.Set(kv[i].(string), kv[i+1])
	}
	return *rec
}

// Users returns n user records with a nested profile and a home location
func Users(n int) []models.Record {
	out := make([]models.Record, n)
	for i := range out {
		out[i] = Record(
			"id", int64(i),
			"name", fmt.Sprintf("user-%d", i),
			"profile", Record("height", int64(150+i), "active", i%2 == 0),
			"home", models.NewGeoPoint(float64(i), -float64(i)),
		)
	}
	return out
}

// UserEntities returns n Datastore REST JSON entities, one per line, that
// decode to the same shape as Users.
func UserEntities(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `{"key":{"path":[{"kind":"User","id":"%d"}]},"properties":{`+
			`"id":{"integerValue":"%d"},`+
			`"name":{"stringValue":"user-%d"},`+
			`"profile":{"entityValue":{"properties":{"height":{"integerValue":"%d"},"active":{"booleanValue":%t}}}},`+
			`"home":{"geoPointValue":{"latitude":%d,"longitude":%d}}}}`+"\n",
			i+1, i, i, 150+i, i%2 == 0, i, -i)
	}
	return b.String()
}
