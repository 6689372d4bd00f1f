package utils

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ToInt converts numbers, numeric strings and byte slices to int.
// Fractional values are truncated; unparseable input yields 0.
func ToInt(val any) int {
	switch v := val.(type) {
	case nil:
		return 0
	case int:
		return v
	case string:
		return parseInt(v)
	case []byte:
		return parseInt(string(v))
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return int(rv.Float())
	default:
		return parseInt(fmt.Sprintf("%v", val))
	}
}

// parseInt accepts "12" as well as spreadsheet renderings such as "12.0".
func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	f, _ := strconv.ParseFloat(s, 64)
	return int(f)
}

// ToString converts various types to string.
func ToString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToFloat converts numeric types and numeric strings to float64.
// Unparseable input yields 0.
func ToFloat(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		return float64(ToInt(v))
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		return f
	default:
		f, _ := strconv.ParseFloat(fmt.Sprintf("%v", v), 64)
		return f
	}
}

// IsBlank reports whether val is nil or renders to whitespace only.
func IsBlank(val any) bool {
	if val == nil {
		return true
	}
	return strings.TrimSpace(ToString(val)) == ""
}

// ToBool converts bools, numbers (1 is true) and strings ("1", "true", "yes") to bool.
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case string:
		return truthy(v)
	case []byte:
		return truthy(string(v))
	case nil:
		return false
	}
	switch reflect.ValueOf(val).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ToInt(val) == 1
	default:
		return false
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
