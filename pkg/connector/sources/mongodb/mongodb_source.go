// Package mongodb reads documents from one MongoDB collection.
package mongodb

import (
	"context"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/logger"
	"github.com/ajitpratap0/docarrow/pkg/models"
)

// Source implements core.RecordSource over a Find cursor
type Source struct {
	client     *mongo.Client
	collection *mongo.Collection
	filter     bson.D
	limit      int64
	cursor     *mongo.Cursor
	read       int
	logger     *zap.Logger
}

// New connects to cfg.URI and prepares a query over cfg.Collection
func New(ctx context.Context, cfg config.SourceConfig, log *zap.Logger) (core.RecordSource, error) {
	filter, err := ParseFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}

	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(cfg.ConnectTimeout)
		clientOpts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to MongoDB")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background()) // Best effort disconnect
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to ping MongoDB")
	}

	s := &Source{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		filter:     filter,
		limit:      int64(cfg.Limit),
		logger:     logger.OrNop(log).With(zap.String("component", "mongodb_source")),
	}
	s.logger.Info("mongodb source ready",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
		zap.Int64("limit", s.limit))
	return s, nil
}

// ParseFilter decodes a relaxed extended JSON query document. An empty
// string matches every document.
func ParseFilter(s string) (bson.D, error) {
	filter := bson.D{}
	if s == "" {
		return filter, nil
	}
	if err := bson.UnmarshalExtJSON([]byte(s), false, &filter); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid source.filter")
	}
	return filter, nil
}

// Next implements core.RecordSource. The cursor opens on the first call.
func (s *Source) Next(ctx context.Context) (models.Record, error) {
	if s.cursor == nil {
		opts := options.Find()
		if s.limit > 0 {
			opts.SetLimit(s.limit)
		}
		cursor, err := s.collection.Find(ctx, s.filter, opts)
		if err != nil {
			return models.Record{}, errors.Wrap(err, errors.ErrorTypeSource, "mongodb find failed")
		}
		s.cursor = cursor
	}

	if !s.cursor.Next(ctx) {
		if err := s.cursor.Err(); err != nil {
			return models.Record{}, errors.Wrap(err, errors.ErrorTypeSource, "mongodb cursor failed")
		}
		return models.Record{}, io.EOF
	}

	var doc bson.D
	if err := s.cursor.Decode(&doc); err != nil {
		return models.Record{}, errors.Wrap(err, errors.ErrorTypeSource, "failed to decode document")
	}
	s.read++
	return ConvertDocument(doc), nil
}

// Close implements core.RecordSource
func (s *Source) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.cursor != nil {
		_ = s.cursor.Close(ctx)
	}
	s.logger.Debug("mongodb source closed", zap.Int("records", s.read))
	return s.client.Disconnect(ctx)
}

// ConvertDocument turns an ordered BSON document into a record, keeping
// field order.
func ConvertDocument(doc bson.D) models.Record {
	rec := models.NewRecord(len(doc))
	for _, e := range doc {
		rec.Set(e.Key, ConvertValue(e.Value))
	}
	return *rec
}

// ConvertValue maps a BSON value onto the record value model. Binary data,
// MinKey and MaxKey pass through and are reported as unsupported by the
// conversion engine.
func ConvertValue(v interface{}) interface{} {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case primitive.Decimal128:
		return x.String()
	case primitive.Regex:
		return x.String()
	case primitive.JavaScript:
		return string(x)
	case primitive.Symbol:
		return string(x)
	case primitive.DBPointer:
		return x.String()
	case primitive.Null, primitive.Undefined:
		return nil
	case primitive.Binary:
		return x.Data
	case bson.D:
		return ConvertDocument(x)
	case bson.M:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = ConvertValue(e)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = ConvertValue(e)
		}
		return out
	default:
		return v
	}
}
