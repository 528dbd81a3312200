package jsonl

import (
	"bytes"
	"encoding/base64"
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/models"
)

// ParseEntity decodes one Datastore entity in REST JSON form. Both the bare
// entity ({"key":…,"properties":…}) and the query result wrapper
// ({"entity":{…}}) are accepted. Property order follows the JSON document.
func ParseEntity(data []byte, includeKey bool) (models.Record, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return models.Record{}, err
	}
	if inner, ok := obj.get("entity"); ok {
		if obj, err = decodeObject(inner); err != nil {
			return models.Record{}, err
		}
	}

	rec := models.Record{}
	if includeKey {
		if raw, ok := obj.get("key"); ok {
			key, err := decodeKey(raw)
			if err != nil {
				return models.Record{}, err
			}
			rec.Set(models.KeyProperty, key)
		}
	}

	if raw, ok := obj.get("properties"); ok {
		props, err := decodeProperties(raw)
		if err != nil {
			return models.Record{}, err
		}
		rec.Properties = append(rec.Properties, props...)
	}
	return rec, nil
}

// DecodeValue converts one tagged REST value ({"stringValue":"x"} and so on)
// into the Go value the conversion engine understands. Unknown tags yield
// the raw JSON, which the engine reports as an unsupported value.
func DecodeValue(data []byte) (interface{}, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	for _, m := range obj {
		raw := m.value
		switch m.name {
		case "nullValue":
			return nil, nil
		case "booleanValue":
			var b bool
			if err := unmarshal(raw, &b, m.name); err != nil {
				return nil, err
			}
			return b, nil
		case "integerValue":
			return decodeInteger(raw)
		case "doubleValue":
			return decodeDouble(raw)
		case "stringValue":
			var s string
			if err := unmarshal(raw, &s, m.name); err != nil {
				return nil, err
			}
			return s, nil
		case "timestampValue":
			var s string
			if err := unmarshal(raw, &s, m.name); err != nil {
				return nil, err
			}
			ts, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeSource, "invalid timestampValue")
			}
			return ts, nil
		case "blobValue":
			var s string
			if err := unmarshal(raw, &s, m.name); err != nil {
				return nil, err
			}
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeSource, "invalid blobValue")
			}
			return b, nil
		case "geoPointValue":
			return decodeGeoPoint(raw)
		case "keyValue":
			return decodeKey(raw)
		case "arrayValue":
			return decodeArray(raw)
		case "entityValue":
			inner, err := decodeObject(raw)
			if err != nil {
				return nil, err
			}
			rec := models.Record{}
			if props, ok := inner.get("properties"); ok {
				if rec.Properties, err = decodeProperties(props); err != nil {
					return nil, err
				}
			}
			return rec, nil
		case "dictValue":
			var dict map[string]interface{}
			if err := unmarshal(raw, &dict, m.name); err != nil {
				return nil, err
			}
			return dict, nil
		case "excludeFromIndexes", "meaning":
			continue
		default:
			return json.RawMessage(append([]byte(nil), raw...)), nil
		}
	}
	return nil, errors.New(errors.ErrorTypeSource, "value has no type tag")
}

func decodeProperties(data []byte) ([]models.Property, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	props := make([]models.Property, 0, len(obj))
	for _, m := range obj {
		v, err := DecodeValue(m.value)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "property "+strconv.Quote(m.name))
		}
		props = append(props, models.Property{Name: m.name, Value: v})
	}
	return props, nil
}

func decodeInteger(raw []byte) (int64, error) {
	// int64 values are JSON strings in the REST API; accept bare numbers too
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeSource, "invalid integerValue")
	}
	return n, nil
}

func decodeDouble(raw []byte) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := unmarshal(raw, &s, "doubleValue"); err != nil {
		return 0, err
	}
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	return 0, errors.Newf(errors.ErrorTypeSource, "invalid doubleValue %q", s)
}

func decodeGeoPoint(raw []byte) (models.GeoPoint, error) {
	var p struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := unmarshal(raw, &p, "geoPointValue"); err != nil {
		return models.GeoPoint{}, err
	}
	var g models.GeoPoint
	if p.Latitude != nil {
		g.Lat, g.HasLat = *p.Latitude, true
	}
	if p.Longitude != nil {
		g.Lng, g.HasLng = *p.Longitude, true
	}
	return g, nil
}

func decodeKey(raw []byte) (models.Key, error) {
	var k struct {
		PartitionID struct {
			NamespaceID string `json:"namespaceId"`
		} `json:"partitionId"`
		Path []struct {
			Kind string `json:"kind"`
			Name string `json:"name"`
			ID   string `json:"id"`
		} `json:"path"`
	}
	if err := unmarshal(raw, &k, "keyValue"); err != nil {
		return models.Key{}, err
	}

	key := models.Key{Namespace: k.PartitionID.NamespaceID, Path: make([]models.PathElement, len(k.Path))}
	for i, el := range k.Path {
		pe := models.PathElement{Kind: el.Kind, Name: el.Name}
		if el.ID != "" {
			id, err := strconv.ParseInt(el.ID, 10, 64)
			if err != nil {
				return models.Key{}, errors.Wrap(err, errors.ErrorTypeSource, "invalid key id")
			}
			pe.ID = id
		}
		key.Path[i] = pe
	}
	return key, nil
}

func decodeArray(raw []byte) ([]interface{}, error) {
	var arr struct {
		Values []json.RawMessage `json:"values"`
	}
	if err := unmarshal(raw, &arr, "arrayValue"); err != nil {
		return nil, err
	}
	out := make([]interface{}, len(arr.Values))
	for i, v := range arr.Values {
		d, err := DecodeValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func unmarshal(raw []byte, v interface{}, tag string) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSource, "invalid "+tag)
	}
	return nil
}

// member is one key of a JSON object
type member struct {
	name  string
	value json.RawMessage
}

// object is a JSON object with its key order preserved
type object []member

func (o object) get(name string) (json.RawMessage, bool) {
	for _, m := range o {
		if m.name == name {
			return m.value, true
		}
	}
	return nil, false
}

func decodeObject(data []byte) (object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "invalid JSON")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New(errors.ErrorTypeSource, "expected a JSON object")
	}

	var obj object
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "invalid JSON")
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "invalid JSON")
		}
		obj = append(obj, member{name: name, value: raw})
	}
	return obj, nil
}
