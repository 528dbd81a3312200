// Package datastore reads entities of one kind from Google Cloud Datastore
// (Firestore in Datastore mode).
package datastore

import (
	"context"
	"io"

	"cloud.google.com/go/datastore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/logger"
	"github.com/ajitpratap0/docarrow/pkg/models"
)

// Source implements core.RecordSource with a kind query
type Source struct {
	client     *datastore.Client
	query      *datastore.Query
	it         *datastore.Iterator
	includeKey bool
	read       int
	logger     *zap.Logger
}

// New connects to the project in cfg and prepares a query over cfg.Kind
func New(ctx context.Context, cfg config.SourceConfig, log *zap.Logger) (core.RecordSource, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Source{
		client:     client,
		query:      NewQuery(cfg),
		includeKey: cfg.IncludeKey,
		logger:     logger.OrNop(log).With(zap.String("component", "datastore_source")),
	}
	s.logger.Info("datastore source ready",
		zap.String("project", cfg.Project),
		zap.String("namespace", cfg.Namespace),
		zap.String("kind", cfg.Kind),
		zap.Int("limit", cfg.Limit))
	return s, nil
}

// NewClient opens a Datastore client for cfg.Project, honoring the
// credentials file and connect timeout.
func NewClient(ctx context.Context, cfg config.SourceConfig) (*datastore.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	client, err := datastore.NewClient(connectCtx, cfg.Project, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create Datastore client")
	}
	return client, nil
}

// NewQuery builds the kind query described by cfg
func NewQuery(cfg config.SourceConfig) *datastore.Query {
	q := datastore.NewQuery(cfg.Kind)
	if cfg.Namespace != "" {
		q = q.Namespace(cfg.Namespace)
	}
	if cfg.Limit > 0 {
		q = q.Limit(cfg.Limit)
	}
	return q
}

// Next implements core.RecordSource. The query starts on the first call.
func (s *Source) Next(ctx context.Context) (models.Record, error) {
	if s.it == nil {
		s.it = s.client.Run(ctx, s.query)
	}

	var props datastore.PropertyList
	key, err := s.it.Next(&props)
	if err == iterator.Done {
		return models.Record{}, io.EOF
	}
	if err != nil {
		return models.Record{}, errors.Wrap(err, errors.ErrorTypeSource, "datastore query failed")
	}
	s.read++

	var k *datastore.Key
	if s.includeKey {
		k = key
	}
	return ConvertEntity(k, props), nil
}

// Close implements core.RecordSource
func (s *Source) Close() error {
	s.logger.Debug("datastore source closed", zap.Int("records", s.read))
	return s.client.Close()
}

// ConvertEntity turns Datastore properties into a record. A non-nil key is
// emitted first as the __key__ property.
func ConvertEntity(key *datastore.Key, props []datastore.Property) models.Record {
	rec := models.NewRecord(len(props) + 1)
	if key != nil {
		rec.Set(models.KeyProperty, ConvertKey(key))
	}
	for _, p := range props {
		rec.Set(p.Name, ConvertValue(p.Value))
	}
	return *rec
}

// ConvertValue maps a Datastore property value onto the record value model.
// Types with no counterpart ([]byte) pass through and are reported by the
// conversion engine.
func ConvertValue(v interface{}) interface{} {
	switch x := v.(type) {
	case *datastore.Key:
		if x == nil {
			return nil
		}
		return ConvertKey(x)
	case datastore.GeoPoint:
		return models.NewGeoPoint(x.Lat, x.Lng)
	case *datastore.Entity:
		if x == nil {
			return nil
		}
		return ConvertEntity(nil, x.Properties)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = ConvertValue(e)
		}
		return out
	default:
		return v
	}
}

// ConvertKey flattens a key and its ancestors into a root-first path
func ConvertKey(k *datastore.Key) models.Key {
	var path []models.PathElement
	for cur := k; cur != nil; cur = cur.Parent {
		path = append(path, models.PathElement{Kind: cur.Kind, Name: cur.Name, ID: cur.ID})
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return models.Key{Namespace: k.Namespace, Path: path}
}
