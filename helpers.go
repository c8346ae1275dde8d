package firerest

import (
	"fmt"
	"reflect"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SetIDField tries to set the "ID" field if it exists and is of type string.
func SetIDField(model interface{}, id string) {
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	field := v.FieldByName("ID")
	if field.IsValid() && field.CanSet() && field.Kind() == reflect.String {
		field.SetString(id)
	}
}

// StructToMap converts a struct to a map (for Firestore), using the "firestore" tag for field names.
func StructToMap(model interface{}) (map[string]interface{}, error) {
	data := make(map[string]interface{})
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		fieldDef := t.Field(i)
		firestoreTag := fieldDef.Tag.Get("firestore")
		if firestoreTag == "" || firestoreTag == "-" {
			continue
		}
		fieldVal := v.Field(i)
		data[firestoreTag] = fieldVal.Interface()
	}
	return data, nil
}

// MapToStruct fills a struct from a decoded document, using the "firestore"
// tag for field names. Decoded numbers arrive as int64 or float64 and are
// widened or narrowed to the destination kind; wire timestamp strings parse
// into time.Time fields.
func MapToStruct(data map[string]interface{}, dest interface{}) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a pointer to a struct")
	}
	v = v.Elem()

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		fieldDef := t.Field(i)
		firestoreTag := fieldDef.Tag.Get("firestore")
		if firestoreTag == "" || firestoreTag == "-" {
			continue
		}
		value, ok := data[firestoreTag]
		if !ok || value == nil {
			continue
		}
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if err := assignValue(field, value); err != nil {
			return fmt.Errorf("field %s: %w", firestoreTag, err)
		}
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

func assignValue(field reflect.Value, value interface{}) error {
	if field.Type() == timeType {
		raw, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected timestamp string, got %T", value)
		}
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(parsed))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		raw, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(raw)
	case reflect.Bool:
		raw, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case float64:
			field.SetInt(int64(n))
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch n := value.(type) {
		case int64:
			field.SetUint(uint64(n))
		case float64:
			field.SetUint(uint64(n))
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case reflect.Float32, reflect.Float64:
		switch n := value.(type) {
		case float64:
			field.SetFloat(n)
		case int64:
			field.SetFloat(float64(n))
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case reflect.Slice:
		raw, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
		slice := reflect.MakeSlice(field.Type(), len(raw), len(raw))
		for i, elem := range raw {
			if err := assignValue(slice.Index(i), elem); err != nil {
				return err
			}
		}
		field.Set(slice)
	case reflect.Map:
		raw, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
		if field.Type() == reflect.TypeOf(map[string]interface{}{}) {
			field.Set(reflect.ValueOf(raw))
			return nil
		}
		return fmt.Errorf("unsupported map type %s", field.Type())
	case reflect.Struct:
		raw, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
		nested := reflect.New(field.Type())
		if err := MapToStruct(raw, nested.Interface()); err != nil {
			return err
		}
		field.Set(nested.Elem())
	case reflect.Interface:
		if value != nil {
			field.Set(reflect.ValueOf(value))
		}
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// IsNotFoundError checks if the provided error corresponds to a 'NotFound' or 'Unknown' status code.
//
// Parameters:
//   - err: The error to be checked, typically a *RemoteError.
//
// Returns:
//   - bool: Returns true if the error maps to a 'NotFound' or 'Unknown' status code, otherwise false.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	statusCode := status.Code(err)
	return statusCode == codes.NotFound || statusCode == codes.Unknown
}
