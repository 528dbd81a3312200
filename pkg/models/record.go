// Package models provides the raw record types read from document stores.
//
// A Record is an ordered list of named properties. Property values are plain
// Go values (string, int64, float64, bool, time.Time, nil, []interface{},
// nested Record) plus the composite types defined here: GeoPoint and Key.
// Records are owned by the RecordSource that produced them and are never
// mutated by the conversion engine.
package models

import (
	"strconv"
	"strings"
)

// KeyProperty is the property name sources use for the entity key
const KeyProperty = "__key__"

// Property is a single named value of a record
type Property struct {
	Name  string
	Value interface{}
}

// Record is a schema-less document: an ordered set of properties.
// Property order is the order in which the source returned them and drives
// the first-seen column order of a converted batch.
type Record struct {
	Properties []Property
}

// NewRecord creates a record with capacity for n properties
func NewRecord(n int) *Record {
	return &Record{Properties: make([]Property, 0, n)}
}

// Set appends a property. Duplicate names are kept as-is; the flattener
// reports them as collisions.
func (r *Record) Set(name string, value interface{}) *Record {
	r.Properties = append(r.Properties, Property{Name: name, Value: value})
	return r
}

// Get returns the first property value with the given name
func (r *Record) Get(name string) (interface{}, bool) {
	for _, p := range r.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// Len returns the number of properties
func (r *Record) Len() int {
	return len(r.Properties)
}

// GeoPoint is a latitude/longitude pair. Sources that decode partial points
// leave HasLat or HasLng unset; such points are rejected during flattening.
type GeoPoint struct {
	Lat    float64
	Lng    float64
	HasLat bool
	HasLng bool
}

// NewGeoPoint creates a complete geo-point
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Lat: lat, Lng: lng, HasLat: true, HasLng: true}
}

// Complete reports whether both coordinates are present
func (g GeoPoint) Complete() bool {
	return g.HasLat && g.HasLng
}

// PathElement is one kind/identifier step of a Key
type PathElement struct {
	Kind string
	Name string
	ID   int64
}

// Key identifies an entity in a document store. Keys convert to strings.
type Key struct {
	Namespace string
	Path      []PathElement
}

// String renders the key as Kind:name/Kind:id, prefixed by the namespace
// when set.
func (k Key) String() string {
	var b strings.Builder
	if k.Namespace != "" {
		b.WriteString(k.Namespace)
		b.WriteString("|")
	}
	for i, el := range k.Path {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(el.Kind)
		b.WriteByte(':')
		if el.Name != "" {
			b.WriteString(el.Name)
		} else {
			b.WriteString(strconv.FormatInt(el.ID, 10))
		}
	}
	return b.String()
}
