package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-faster/errors"
)

// DefaultErrorMessage is shown when the backend gives no usable message.
const DefaultErrorMessage = "Error al procesar la solicitud"

// Error is a non-successful backend reply.
type Error struct {
	Status  int
	Message string
	// Fields holds per-field messages when the backend rejected a payload.
	Fields map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("api: %d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

// AsError unwraps err to an *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func IsUnauthorized(err error) bool {
	e, ok := AsError(err)
	return ok && e.Status == http.StatusUnauthorized
}

func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Status == http.StatusNotFound
}

// FieldErrors returns the per-field messages carried by err, if any.
func FieldErrors(err error) map[string]string {
	e, ok := AsError(err)
	if !ok || len(e.Fields) == 0 {
		return nil
	}
	return e.Fields
}

// Message returns the text to show the user for err.
func Message(err error) string {
	if e, ok := AsError(err); ok && e.Message != "" {
		return e.Message
	}
	return DefaultErrorMessage
}

// parseFieldErrors accepts either {"field": "msg"} or a list of
// {"field"|"path"|"param": ..., "msg"|"message": ...}.
func parseFieldErrors(v any) map[string]string {
	out := map[string]string{}
	switch t := v.(type) {
	case map[string]any:
		for k, msg := range t {
			out[k] = fmt.Sprint(msg)
		}
	case []any:
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			field := firstString(m, "field", "path", "param")
			msg := firstString(m, "msg", "message")
			if field != "" {
				out[field] = msg
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
