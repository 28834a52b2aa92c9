package apiclient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NotAvailable is displayed for missing or empty values.
const NotAvailable = "N/A"

// Record is an entity passed through from the backend untouched.
type Record map[string]any

// ID returns the record identifier as a string.
func (r Record) ID() string {
	for _, key := range []string{"id", "_id", "uuid"} {
		if v, ok := r[key]; ok {
			if s := scalarString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// Lookup resolves a dotted path such as "contact.email" into nested objects.
func (r Record) Lookup(path string) (any, bool) {
	var current any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			if rec, isRec := current.(Record); isRec {
				obj = rec
			} else {
				return nil, false
			}
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// String returns the value at path, or "" when it is missing or not a scalar.
func (r Record) String(path string) string {
	v, ok := r.Lookup(path)
	if !ok {
		return ""
	}
	return scalarString(v)
}

// Display returns the value at path with the N/A fallback.
func (r Record) Display(path string) string {
	v, ok := r.Lookup(path)
	if !ok {
		return NotAvailable
	}
	return displayValue(v)
}

func displayValue(v any) string {
	if v == nil {
		return NotAvailable
	}
	switch val := v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return NotAvailable
		}
		return string(data)
	}
	if s := strings.TrimSpace(scalarString(v)); s != "" {
		return s
	}
	return NotAvailable
}

// Bool reports whether the value at path is truthy.
func (r Record) Bool(path string) bool {
	v, ok := r.Lookup(path)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, _ := strconv.ParseBool(val)
		return b || strings.EqualFold(val, "active")
	case float64:
		return val != 0
	}
	return false
}

// Field is one flattened key/value pair used by the detail overlay.
type Field struct {
	Path  string
	Value string
}

// Flatten walks nested objects and returns every scalar leaf in key order.
func (r Record) Flatten() []Field {
	var out []Field
	flatten("", map[string]any(r), &out)
	return out
}

func flatten(prefix string, obj map[string]any, out *[]Field) {
	keys := sortedKeys(obj)
	for _, key := range keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := obj[key].(map[string]any); ok {
			flatten(path, nested, out)
			continue
		}
		*out = append(*out, Field{Path: path, Value: displayValue(obj[key])})
	}
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}
