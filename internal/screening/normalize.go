package screening

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
)

// ToBinary converts a boolean-ish value into 0 or 1. It never fails: values
// that match no known spelling fall back to truthiness.
func ToBinary(value any) int {
	switch v := value.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	case json.Number:
		number, err := v.Float64()
		if err != nil || number == 0 || math.IsNaN(number) {
			return 0
		}
		return 1
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y":
			return 1
		case "0", "false", "no", "n":
			return 0
		}
		if v != "" {
			return 1
		}
		return 0
	}

	if number, ok := numericValue(value); ok {
		if number != 0 && !math.IsNaN(number) {
			return 1
		}
		return 0
	}

	return truthy(value)
}

func numericValue(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func truthy(value any) int {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return 0
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return 0
		}
	}
	return 1
}
