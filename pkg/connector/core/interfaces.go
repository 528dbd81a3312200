// Package core defines the interfaces shared by record sources and byte
// destinations.
package core

import (
	"context"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/ajitpratap0/docarrow/pkg/models"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource      ConnectorType = "source"
	ConnectorTypeDestination ConnectorType = "destination"
)

// RecordSource yields document records one at a time.
//
// Next returns io.EOF once the source is exhausted. Records are owned by the
// caller after Next returns.
type RecordSource interface {
	Next(ctx context.Context) (models.Record, error)
	Close() error
}

// Metadata keys set on every object
const (
	MetaFormat = "docarrow-format"
	MetaRows   = "docarrow-rows"
	MetaBatch  = "docarrow-batch"
	MetaRun    = "docarrow-run"
)

// Object is one serialized payload headed for a destination
type Object struct {
	// Name is the object key, file name or message key
	Name        string
	ContentType string
	// ContentEncoding names the compression wrapped around Data, if any
	ContentEncoding string
	Data            []byte
	Metadata        map[string]string
}

// Key joins prefix and the object name into a bucket key
func (o Object) Key(prefix string) string {
	if prefix == "" {
		return o.Name
	}
	return path.Join(strings.TrimSuffix(prefix, "/"), o.Name)
}

// Header returns the metadata plus content type and encoding, for
// transports that carry string headers.
func (o Object) Header() map[string]string {
	h := make(map[string]string, len(o.Metadata)+2)
	for k, v := range o.Metadata {
		h[k] = v
	}
	if o.ContentType != "" {
		h["content-type"] = o.ContentType
	}
	if o.ContentEncoding != "" {
		h["content-encoding"] = o.ContentEncoding
	}
	return h
}

// Destination receives serialized batches
type Destination interface {
	Write(ctx context.Context, obj Object) error
	Close(ctx context.Context) error
}

// SliceSource serves records from memory
type SliceSource struct {
	records []models.Record
	pos     int
	closed  bool
}

// NewSliceSource creates a source over records
func NewSliceSource(records ...models.Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next implements RecordSource
func (s *SliceSource) Next(ctx context.Context) (models.Record, error) {
	if err := ctx.Err(); err != nil {
		return models.Record{}, err
	}
	if s.closed || s.pos >= len(s.records) {
		return models.Record{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

// Close implements RecordSource
func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// MemoryDestination keeps every written object
type MemoryDestination struct {
	mu      sync.Mutex
	objects []Object
	closed  bool
}

// NewMemoryDestination creates an empty in-memory destination
func NewMemoryDestination() *MemoryDestination {
	return &MemoryDestination{}
}

// Write implements Destination. Data is copied.
func (d *MemoryDestination) Write(ctx context.Context, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return io.ErrClosedPipe
	}
	obj.Data = append([]byte(nil), obj.Data...)
	d.objects = append(d.objects, obj)
	return nil
}

// Close implements Destination
func (d *MemoryDestination) Close(context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Objects returns the written objects in order
func (d *MemoryDestination) Objects() []Object {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Object(nil), d.objects...)
}

// Closed reports whether Close was called
func (d *MemoryDestination) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
