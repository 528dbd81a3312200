package schema

// GeoCollisions finds records that hold a plain value at a name another
// record's geo-point expands to. Such a record would leave one half of the
// pair null, or force both halves off Float64, so it fails structurally.
//
// The result maps the index into rows to the record's error. Nil entries in
// rows (records that already failed) are skipped.
func GeoCollisions(rows []*FlattenedRecord) map[int]error {
	geo := make(map[string]FieldKind)
	for _, rec := range rows {
		if rec == nil {
			continue
		}
		for _, name := range rec.Names() {
			v, _ := rec.Get(name)
			if v.Kind == KindGeoLat || v.Kind == KindGeoLon {
				if _, seen := geo[name]; !seen {
					geo[name] = v.Kind
				}
			}
		}
	}
	if len(geo) == 0 {
		return nil
	}

	var out map[int]error
	for i, rec := range rows {
		if rec == nil {
			continue
		}
		for _, name := range rec.Names() {
			want, ok := geo[name]
			if !ok {
				continue
			}
			if v, _ := rec.Get(name); v.Kind != want {
				if out == nil {
					out = make(map[int]error)
				}
				out[i] = structural(name, "field %q collides with a geo-point expansion", name).
					WithDetail("kind", v.Kind.String())
				break
			}
		}
	}
	return out
}

