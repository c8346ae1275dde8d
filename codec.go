package firerest

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Wire value tags recognized by the codec. A wire value is a single-key
// map carrying exactly one of these tags.
const (
	tagString    = "stringValue"
	tagInteger   = "integerValue"
	tagDouble    = "doubleValue"
	tagBoolean   = "booleanValue"
	tagNull      = "nullValue"
	tagTimestamp = "timestampValue"
	tagArray     = "arrayValue"
	tagMap       = "mapValue"
)

// nullSentinel is what Firestore expects as the payload of a nullValue.
const nullSentinel = "NULL_VALUE"

// Encode converts a native value (string, number, bool, nil, time.Time,
// slice, or map with string keys) to Firestore's tagged wire representation.
// Integral floats encode as integerValue; fractional floats as doubleValue.
//
// Encode does not sanitize NaN or infinities: a non-finite float is passed
// through as a doubleValue and the surrounding request will fail to
// serialize. EncodeDocument substitutes zero for such fields instead; filter
// values built through Encode keep the raw float, so the caller owns that
// edge.
func Encode(value interface{}) (map[string]interface{}, error) {
	switch v := value.(type) {
	case nil:
		return map[string]interface{}{tagNull: nullSentinel}, nil
	case string:
		return map[string]interface{}{tagString: v}, nil
	case bool:
		return map[string]interface{}{tagBoolean: v}, nil
	case int:
		return map[string]interface{}{tagInteger: int64(v)}, nil
	case int8:
		return map[string]interface{}{tagInteger: int64(v)}, nil
	case int16:
		return map[string]interface{}{tagInteger: int64(v)}, nil
	case int32:
		return map[string]interface{}{tagInteger: int64(v)}, nil
	case int64:
		return map[string]interface{}{tagInteger: v}, nil
	case uint:
		return map[string]interface{}{tagInteger: int64(v)}, nil
	case uint8:
		return map[string]interface{}{tagInteger: int64(v)}, nil
	case uint16:
		return map[string]interface{}{tagInteger: int64(v)}, nil
	case uint32:
		return map[string]interface{}{tagInteger: int64(v)}, nil
	case uint64:
		return map[string]interface{}{tagInteger: int64(v)}, nil
	case float32:
		return encodeFloat(float64(v)), nil
	case float64:
		return encodeFloat(v), nil
	case time.Time:
		return map[string]interface{}{tagTimestamp: v.UTC().Format(time.RFC3339Nano)}, nil
	case []interface{}:
		values := make([]interface{}, 0, len(v))
		for _, elem := range v {
			encoded, err := Encode(elem)
			if err != nil {
				return nil, err
			}
			values = append(values, encoded)
		}
		return map[string]interface{}{tagArray: map[string]interface{}{"values": values}}, nil
	case map[string]interface{}:
		fields, err := encodeFields(v, false)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{tagMap: map[string]interface{}{"fields": fields}}, nil
	}
	return encodeReflect(value)
}

// encodeReflect covers slice and map shapes that don't match the concrete
// cases in Encode, e.g. []string or map[string]int.
func encodeReflect(value interface{}) (map[string]interface{}, error) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		values := make([]interface{}, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			encoded, err := Encode(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			values = append(values, encoded)
		}
		return map[string]interface{}{tagArray: map[string]interface{}{"values": values}}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &UnsupportedTypeError{Type: fmt.Sprintf("%T", value)}
		}
		fields := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			encoded, err := Encode(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			fields[iter.Key().String()] = encoded
		}
		return map[string]interface{}{tagMap: map[string]interface{}{"fields": fields}}, nil
	}
	return nil, &UnsupportedTypeError{Type: fmt.Sprintf("%T", value)}
}

func encodeFloat(f float64) map[string]interface{} {
	if !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f) {
		return map[string]interface{}{tagInteger: int64(f)}
	}
	return map[string]interface{}{tagDouble: f}
}

// EncodeDocument converts a native object to a Firestore document field map,
// encoding each field with Encode. Non-finite numeric fields (NaN, ±Inf) are
// replaced with the wire value {"doubleValue": 0}: the wire format has no
// NaN literal on this path, and a non-finite value is by definition a
// double, so the substitution stays on the double branch rather than being
// reclassified as integral. This is a simplification relative to Firestore's
// own "NaN" double form, which this codec never emits.
func EncodeDocument(object map[string]interface{}) (map[string]interface{}, error) {
	return encodeFields(object, true)
}

func encodeFields(object map[string]interface{}, substituteNaN bool) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, len(object))
	for name, value := range object {
		if substituteNaN {
			if f, ok := asFloat(value); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				fields[name] = map[string]interface{}{tagDouble: float64(0)}
				continue
			}
		}
		encoded, err := Encode(value)
		if err != nil {
			return nil, err
		}
		fields[name] = encoded
	}
	return fields, nil
}

func asFloat(value interface{}) (float64, bool) {
	switch f := value.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	}
	return 0, false
}

// Decode converts a tagged wire value back to its native form. It never
// fails: unrecognized tags, and maps that are not single-key tagged values,
// decode best-effort as plain nested documents.
//
// Numbers normalize on the way out: an integerValue payload becomes int64
// whether the wire carried it as a JSON number or as Firestore's string
// form, and a doubleValue holding a whole number also becomes int64. A
// double that round-trips through the codec can therefore come back as an
// integer; that is the documented lossy edge, not a defect. Timestamps stay
// in their wire string form.
func Decode(wireValue map[string]interface{}) interface{} {
	if len(wireValue) == 1 {
		for tag, payload := range wireValue {
			switch tag {
			case tagString, tagBoolean, tagTimestamp:
				return payload
			case tagNull:
				return nil
			case tagInteger:
				return decodeInteger(payload)
			case tagDouble:
				return decodeDouble(payload)
			case tagArray:
				return decodeArray(payload)
			case tagMap:
				if m, ok := payload.(map[string]interface{}); ok {
					fields, _ := m["fields"].(map[string]interface{})
					return DecodeDocument(fields)
				}
				return map[string]interface{}{}
			}
			// Not a recognized tag: fall through to plain-document handling.
		}
	}
	return DecodeDocument(wireValue)
}

func decodeInteger(payload interface{}) interface{} {
	switch n := payload.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i
		}
	}
	return payload
}

func decodeDouble(payload interface{}) interface{} {
	switch n := payload.(type) {
	case float64:
		if !math.IsNaN(n) && !math.IsInf(n, 0) && n == math.Trunc(n) {
			return int64(n)
		}
		return n
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return decodeDouble(f)
		}
	}
	return payload
}

func decodeArray(payload interface{}) []interface{} {
	decoded := []interface{}{}
	m, ok := payload.(map[string]interface{})
	if !ok {
		return decoded
	}
	values, ok := m["values"].([]interface{})
	if !ok {
		// An empty Firestore array arrives without a "values" key.
		return decoded
	}
	for _, elem := range values {
		if wire, ok := elem.(map[string]interface{}); ok {
			decoded = append(decoded, Decode(wire))
		} else {
			decoded = append(decoded, elem)
		}
	}
	return decoded
}

// DecodeDocument converts a Firestore document field map back to a native
// object. A nil or empty input yields an empty object.
func DecodeDocument(wireDocument map[string]interface{}) map[string]interface{} {
	object := make(map[string]interface{}, len(wireDocument))
	for name, value := range wireDocument {
		if wire, ok := value.(map[string]interface{}); ok {
			object[name] = Decode(wire)
		} else {
			object[name] = value
		}
	}
	return object
}
