package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/encoder"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/models"
	"github.com/ajitpratap0/docarrow/pkg/schema"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Empty(t, f)

	f, err = ParseFilter(`{"status": "active", "age": {"$gt": 21}}`)
	require.NoError(t, err)
	require.Len(t, f, 2)
	assert.Equal(t, "status", f[0].Key)
	assert.Equal(t, "active", f[0].Value)
	assert.Equal(t, "age", f[1].Key)

	_, err = ParseFilter(`{"status":`)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestConvertValue(t *testing.T) {
	oid := primitive.NewObjectIDFromTimestamp(time.Unix(1700000000, 0))
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	dec, err := primitive.ParseDecimal128("12.50")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"object id", oid, oid.Hex()},
		{"datetime", primitive.NewDateTimeFromTime(ts), ts},
		{"timestamp", primitive.Timestamp{T: uint32(ts.Unix())}, ts},
		{"decimal", dec, "12.50"},
		{"null", primitive.Null{}, nil},
		{"int32", int32(7), int32(7)},
		{"binary", primitive.Binary{Data: []byte{1, 2}}, []byte{1, 2}},
		{"array", bson.A{"a", oid}, []interface{}{"a", oid.Hex()}},
		{"document", bson.D{{Key: "h", Value: int64(170)}},
			models.Record{Properties: []models.Property{{Name: "h", Value: int64(170)}}}},
		{"map", bson.M{"x": primitive.Null{}}, map[string]interface{}{"x": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertValue(tt.in))
		})
	}
}

func TestConvertDocument_EncodesEndToEnd(t *testing.T) {
	docs := []bson.D{
		{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "n", Value: int32(1)}, {Key: "profile", Value: bson.D{{Key: "city", Value: "Oslo"}}}},
		{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "n", Value: "one"}},
	}
	records := make([]models.Record, len(docs))
	for i, d := range docs {
		records[i] = ConvertDocument(d)
	}

	b, err := encoder.New(encoder.Config{Source: config.SourceMongoDB}, nil).Encode(records)
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, []string{"_id", "n", "profile_city"}, b.Schema.Names())
	n, _ := b.Schema.Lookup("n")
	assert.Equal(t, schema.KindString, n.Kind)
	assert.True(t, n.Widened)
}
