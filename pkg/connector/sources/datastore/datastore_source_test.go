package datastore

import (
	"testing"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/encoder"
	"github.com/ajitpratap0/docarrow/pkg/models"
	"github.com/ajitpratap0/docarrow/pkg/schema"
)

func TestConvertKey(t *testing.T) {
	parent := datastore.NameKey("users", "alice", nil)
	parent.Namespace = "prod"
	child := datastore.IDKey("Task", 42, parent)
	child.Namespace = "prod"

	k := ConvertKey(child)
	assert.Equal(t, "prod|users:alice/Task:42", k.String())
}

func TestConvertValue(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"nil", nil, nil},
		{"string", "x", "x"},
		{"int", int64(3), int64(3)},
		{"time", ts, ts},
		{"geo", datastore.GeoPoint{Lat: 1.5, Lng: 2.5}, models.NewGeoPoint(1.5, 2.5)},
		{"key", datastore.NameKey("K", "n", nil), models.Key{Path: []models.PathElement{{Kind: "K", Name: "n"}}}},
		{"nil key", (*datastore.Key)(nil), nil},
		{"array", []interface{}{"a", datastore.GeoPoint{Lat: 1, Lng: 2}}, []interface{}{"a", models.NewGeoPoint(1, 2)}},
		{"entity", &datastore.Entity{Properties: []datastore.Property{{Name: "h", Value: int64(170)}}},
			models.Record{Properties: []models.Property{{Name: "h", Value: int64(170)}}}},
		{"blob", []byte("raw"), []byte("raw")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertValue(tt.in))
		})
	}
}

func TestConvertEntity_EncodesEndToEnd(t *testing.T) {
	key := datastore.NameKey("users", "ada", nil)
	props := datastore.PropertyList{
		{Name: "name", Value: "Ada"},
		{Name: "home", Value: datastore.GeoPoint{Lat: 51.5, Lng: -0.1}},
		{Name: "profile", Value: &datastore.Entity{Properties: []datastore.Property{{Name: "height", Value: int64(170)}}}},
	}

	rec := ConvertEntity(key, props)
	assert.Equal(t, models.KeyProperty, rec.Properties[0].Name)

	b, err := encoder.New(encoder.Config{Source: config.SourceDatastore}, nil).Encode([]models.Record{rec})
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, []string{"__key__", "name", "home_lat", "home_lon", "profile_height"}, b.Schema.Names())
	f, _ := b.Schema.Lookup("__key__")
	assert.Equal(t, schema.KindString, f.Kind)
}

func TestNewQuery(t *testing.T) {
	q := NewQuery(config.SourceConfig{Kind: "User", Namespace: "prod", Limit: 10})
	assert.NotNil(t, q)
}
