package schema

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/docarrow/pkg/errors"
)

// Field is one column of a UnifiedSchema
type Field struct {
	Name string
	Kind FieldKind
	// Widened is set when conflicting kinds were promoted to String
	Widened bool
	// Nullable is set when at least one record lacks the field or holds null
	Nullable bool
}

// UnifiedSchema is the ordered set of columns inferred for one batch.
// Field order is the first-seen order across the batch.
type UnifiedSchema struct {
	Fields []Field
	index  map[string]int
}

// NewUnifiedSchema builds a schema from fields. Names must be unique.
func NewUnifiedSchema(fields []Field) *UnifiedSchema {
	s := &UnifiedSchema{
		Fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		s.index[f.Name] = i
	}
	return s
}

// Len returns the number of fields
func (s *UnifiedSchema) Len() int {
	return len(s.Fields)
}

// Lookup finds a field by name
func (s *UnifiedSchema) Lookup(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Names returns the field names in schema order
func (s *UnifiedSchema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Inferencer resolves one kind per flat field across a batch. Geo halves
// never widen: GeoCollisions removes the records that would force them to.
type Inferencer struct{}

// NewInferencer creates an inferencer
func NewInferencer() *Inferencer {
	return &Inferencer{}
}

// observation accumulates what was seen for one flat name
type observation struct {
	name    string
	kinds   []FieldKind // distinct non-null kinds, first-seen order
	present int
	nulls   int
}

func (o *observation) add(k FieldKind) {
	o.present++
	if k == KindNull {
		o.nulls++
		return
	}
	for _, seen := range o.kinds {
		if seen == k {
			return
		}
	}
	o.kinds = append(o.kinds, k)
}

// Infer scans records in order and returns the unified schema together with
// a TypeConflict diagnostic for every widened field. The result depends only
// on the input order.
func (in *Inferencer) Infer(records []*FlattenedRecord) (*UnifiedSchema, []Diagnostic) {
	var order []*observation
	byName := make(map[string]*observation)

	for _, rec := range records {
		for _, name := range rec.Names() {
			obs, ok := byName[name]
			if !ok {
				obs = &observation{name: name}
				byName[name] = obs
				order = append(order, obs)
			}
			v, _ := rec.Get(name)
			obs.add(v.Kind)
		}
	}

	fields := make([]Field, len(order))
	var diags []Diagnostic
	for i, obs := range order {
		f := Field{
			Name:     obs.name,
			Nullable: obs.nulls > 0 || obs.present < len(records),
		}
		switch len(obs.kinds) {
		case 0:
			f.Kind = KindString
		case 1:
			f.Kind = obs.kinds[0]
		default:
			f.Kind = KindString
			f.Widened = true
			diags = append(diags, conflict(obs.name, fmt.Sprintf(
				"observed kinds %s; promoted to %s", joinKinds(obs.kinds), KindString)))
		}
		fields[i] = f
	}

	return NewUnifiedSchema(fields), diags
}

func joinKinds(kinds []FieldKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}

func conflict(field, reason string) Diagnostic {
	return Diagnostic{
		Field:  field,
		Kind:   errors.ErrorTypeTypeConflict,
		Reason: reason,
		Record: BatchLevel,
	}
}
