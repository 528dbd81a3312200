package schema

import (
	"reflect"
	"sort"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/docarrow/pkg/models"
	"github.com/ajitpratap0/docarrow/pkg/pool"
)

// DefaultSeparator joins the path segments of a flattened field name
const DefaultSeparator = "_"

// FlattenedRecord maps flat field names to scalar values, keeping the order
// in which the names were produced.
type FlattenedRecord struct {
	names  []string
	values map[string]Value
}

// NewFlattenedRecord creates an empty flattened record sized for n fields
func NewFlattenedRecord(n int) *FlattenedRecord {
	return &FlattenedRecord{
		names:  make([]string, 0, n),
		values: make(map[string]Value, n),
	}
}

// Put adds a field. It returns false and leaves r unchanged when the name
// is already present.
func (r *FlattenedRecord) Put(name string, v Value) bool {
	if _, dup := r.values[name]; dup {
		return false
	}
	r.names = append(r.names, name)
	r.values[name] = v
	return true
}

// Get returns the value of a field
func (r *FlattenedRecord) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns the field names in production order. The slice must not be
// modified.
func (r *FlattenedRecord) Names() []string {
	return r.names
}

// Len returns the number of fields
func (r *FlattenedRecord) Len() int {
	return len(r.names)
}

// FlattenerOption configures a Flattener
type FlattenerOption func(*Flattener)

// WithSeparator sets the string joining nested field names
func WithSeparator(sep string) FlattenerOption {
	return func(f *Flattener) {
		if sep != "" {
			f.separator = sep
		}
	}
}

// Flattener expands nested records and geo-points into flat fields.
// It is safe for concurrent use.
type Flattener struct {
	separator string
	arena     *pool.Arena
}

// NewFlattener creates a flattener. Field names are interned in arena when
// it is non-nil.
func NewFlattener(arena *pool.Arena, opts ...FlattenerOption) *Flattener {
	f := &Flattener{
		separator: DefaultSeparator,
		arena:     arena,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Separator returns the configured name separator
func (f *Flattener) Separator() string {
	return f.separator
}

// Flatten converts one record. Unsupported values are dropped and reported
// as diagnostics. A cycle, an incomplete geo-point or two values landing on
// the same flat name fail the record with a structural error.
func (f *Flattener) Flatten(rec models.Record) (*FlattenedRecord, []Diagnostic, error) {
	w := &walker{
		f:         f,
		out:       NewFlattenedRecord(len(rec.Properties)),
		ancestors: make(map[uintptr]struct{}),
	}
	for _, p := range rec.Properties {
		if err := w.value(w.top(p.Name), p.Value); err != nil {
			return nil, w.diags, err
		}
	}
	return w.out, w.diags, nil
}

// walker carries the state of one Flatten call
type walker struct {
	f         *Flattener
	out       *FlattenedRecord
	diags     []Diagnostic
	ancestors map[uintptr]struct{}
}

// top names a property of the record itself
func (w *walker) top(name string) string {
	if w.f.arena != nil {
		return w.f.arena.Intern(name)
	}
	return name
}

// join names a child of prefix. An empty prefix still takes the separator,
// so children of a property named "" cannot land on top-level names.
func (w *walker) join(prefix, name string) string {
	if w.f.arena != nil {
		return w.f.arena.JoinName(prefix, w.f.separator, name)
	}
	return prefix + w.f.separator + name
}

func (w *walker) put(name string, v Value) error {
	if !w.out.Put(name, v) {
		return structural(name, "field name collision on %q", name)
	}
	return nil
}

func (w *walker) properties(prefix string, props []models.Property) error {
	for _, p := range props {
		if err := w.value(w.join(prefix, p.Name), p.Value); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) value(name string, v interface{}) error {
	switch Classify(v) {
	case ValueNull:
		return w.put(name, NullValue())
	case ValueString:
		return w.put(name, StringValue(asString(v)))
	case ValueInt:
		return w.put(name, IntValue(asInt(v)))
	case ValueFloat:
		return w.put(name, FloatValue(asFloat(v)))
	case ValueBool:
		return w.put(name, BoolValue(v.(bool)))
	case ValueTimestamp:
		return w.put(name, TimestampValue(asTime(v)))
	case ValueGeoPoint:
		g := asGeoPoint(v)
		if !g.HasLat {
			return structural(name, "geo-point %q is missing latitude", name)
		}
		if !g.HasLng {
			return structural(name, "geo-point %q is missing longitude", name)
		}
		if err := w.put(w.join(name, "lat"), GeoLatValue(g.Lat)); err != nil {
			return err
		}
		return w.put(w.join(name, "lon"), GeoLonValue(g.Lng))
	case ValueList:
		items, err := w.list(name, v)
		if err != nil {
			return err
		}
		return w.put(name, ListValue(items))
	case ValueRecord:
		return w.nested(name, v)
	case ValueUnsupported:
		w.diags = append(w.diags, unsupported(name, v))
		return nil
	default:
		panic("schema: unhandled value kind")
	}
}

// nested expands a record or map under prefix
func (w *walker) nested(prefix string, v interface{}) error {
	leave, err := w.enter(prefix, v)
	if err != nil {
		return err
	}
	defer leave()

	switch x := v.(type) {
	case models.Record:
		return w.properties(prefix, x.Properties)
	case *models.Record:
		return w.properties(prefix, x.Properties)
	case map[string]interface{}:
		return w.properties(prefix, sortedProperties(x))
	}
	return nil
}

// enter marks a reference value as being visited. Values that cannot
// alias (a models.Record held by value) need no tracking.
func (w *walker) enter(field string, v interface{}) (func(), error) {
	ref, ok := identity(v)
	if !ok {
		return func() {}, nil
	}
	if _, seen := w.ancestors[ref]; seen {
		return nil, structural(field, "cycle detected at %q", field)
	}
	w.ancestors[ref] = struct{}{}
	return func() { delete(w.ancestors, ref) }, nil
}

func identity(v interface{}) (uintptr, bool) {
	switch x := v.(type) {
	case *models.Record:
		return reflect.ValueOf(x).Pointer(), true
	case map[string]interface{}:
		if len(x) == 0 {
			return 0, false
		}
		return reflect.ValueOf(x).Pointer(), true
	case []interface{}:
		if len(x) == 0 {
			return 0, false
		}
		return reflect.ValueOf(x).Pointer(), true
	}
	return 0, false
}

func sortedProperties(m map[string]interface{}) []models.Property {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := make([]models.Property, len(keys))
	for i, k := range keys {
		props[i] = models.Property{Name: k, Value: m[k]}
	}
	return props
}

// list stringifies the elements of a list value. Nil elements are skipped
// and composite elements are rendered as JSON.
func (w *walker) list(name string, v interface{}) ([]string, error) {
	if ss, ok := v.([]string); ok {
		out := make([]string, len(ss))
		copy(out, ss)
		return out, nil
	}

	leave, err := w.enter(name, v)
	if err != nil {
		return nil, err
	}
	defer leave()

	elems := v.([]interface{})
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		s, ok, err := w.element(name, e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (w *walker) element(name string, e interface{}) (string, bool, error) {
	switch Classify(e) {
	case ValueNull:
		return "", false, nil
	case ValueString:
		return asString(e), true, nil
	case ValueInt:
		return IntValue(asInt(e)).String(), true, nil
	case ValueFloat:
		return FormatFloat(asFloat(e)), true, nil
	case ValueBool:
		return BoolValue(e.(bool)).String(), true, nil
	case ValueTimestamp:
		return TimestampValue(asTime(e)).String(), true, nil
	case ValueGeoPoint, ValueList, ValueRecord:
		tree, ok, err := w.jsonable(name, e)
		if err != nil || !ok {
			return "", false, err
		}
		b, err := json.Marshal(tree)
		if err != nil {
			return "", false, structural(name, "list element of %q cannot be rendered: %v", name, err)
		}
		return string(b), true, nil
	case ValueUnsupported:
		w.diags = append(w.diags, unsupported(name, e))
		return "", false, nil
	default:
		panic("schema: unhandled value kind")
	}
}

// jsonable converts a composite list element into plain JSON types
func (w *walker) jsonable(name string, v interface{}) (interface{}, bool, error) {
	switch Classify(v) {
	case ValueNull:
		return nil, true, nil
	case ValueString:
		return asString(v), true, nil
	case ValueInt:
		return asInt(v), true, nil
	case ValueFloat:
		return jsonFloat(asFloat(v)), true, nil
	case ValueBool:
		return v, true, nil
	case ValueTimestamp:
		return TimestampValue(asTime(v)).String(), true, nil
	case ValueGeoPoint:
		g := asGeoPoint(v)
		obj := make(map[string]interface{}, 2)
		if g.HasLat {
			obj["lat"] = jsonFloat(g.Lat)
		}
		if g.HasLng {
			obj["lon"] = jsonFloat(g.Lng)
		}
		return obj, true, nil
	case ValueList:
		if ss, ok := v.([]string); ok {
			return ss, true, nil
		}
		leave, err := w.enter(name, v)
		if err != nil {
			return nil, false, err
		}
		defer leave()
		elems := v.([]interface{})
		arr := make([]interface{}, 0, len(elems))
		for _, e := range elems {
			j, ok, err := w.jsonable(name, e)
			if err != nil {
				return nil, false, err
			}
			if ok {
				arr = append(arr, j)
			}
		}
		return arr, true, nil
	case ValueRecord:
		leave, err := w.enter(name, v)
		if err != nil {
			return nil, false, err
		}
		defer leave()
		var props []models.Property
		switch x := v.(type) {
		case models.Record:
			props = x.Properties
		case *models.Record:
			props = x.Properties
		case map[string]interface{}:
			props = sortedProperties(x)
		}
		obj := make(map[string]interface{}, len(props))
		for _, p := range props {
			j, ok, err := w.jsonable(name, p.Value)
			if err != nil {
				return nil, false, err
			}
			if ok {
				obj[p.Name] = j
			}
		}
		return obj, true, nil
	case ValueUnsupported:
		w.diags = append(w.diags, unsupported(name, v))
		return nil, false, nil
	default:
		panic("schema: unhandled value kind")
	}
}
