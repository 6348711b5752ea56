package api

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Record is one resource document as sent and received on the wire.
type Record map[string]any

// ID reads "_id", falling back to "id".
func (r Record) ID() string {
	for _, k := range []string{"_id", "id"} {
		if v, ok := r[k]; ok && v != nil {
			if f, ok := v.(float64); ok {
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
			return fmt.Sprint(v)
		}
	}
	return ""
}

// String renders r[key] for display. Nested documents (populated refs)
// render through their first name-like field.
func (r Record) String(key string) string {
	return display(r[key])
}

func display(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "sí"
		}
		return "no"
	case map[string]any:
		for _, k := range []string{"nombre", "name", "idRuta", "numeroGuia", "titulo", "_id", "id"} {
			if s, ok := t[k]; ok && s != nil {
				return display(s)
			}
		}
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, display(e))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// Float reads a numeric field, accepting numeric strings.
func (r Record) Float(key string) (float64, bool) {
	switch t := r[key].(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// Ref returns the id of a reference field, whether it arrived populated or
// as a bare id.
func (r Record) Ref(key string) string {
	switch t := r[key].(type) {
	case map[string]any:
		return Record(t).ID()
	case nil:
		return ""
	default:
		return display(t)
	}
}

// Clone copies the top level of r.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// Page is one page of a list reply.
type Page struct {
	Items []Record
	Total int
}
