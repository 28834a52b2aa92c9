package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/dennislaw/svd-console/internal/platform/httpx"
)

// APIError is a non-2xx response from the Dennislaw API. The backend reports
// problems under "detail", either as a message or as an object keyed by field.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		return fmt.Sprintf("api: status %d: %s", e.Status, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// SafeMessage is the text shown to console users.
func (e *APIError) SafeMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) > 0 {
		return "Please correct the highlighted fields."
	}
	return http.StatusText(e.Status)
}

// Unwrap maps the status onto the shared sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return httpx.ErrUnauthorized
	case http.StatusForbidden:
		return httpx.ErrForbidden
	case http.StatusNotFound:
		return httpx.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		return httpx.ErrValidation
	}
	if e.Status >= 500 {
		return httpx.ErrUpstream
	}
	return nil
}

// FieldErrors returns the per-field messages carried by err, if any.
func FieldErrors(err error) map[string]string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		out := make(map[string]string, len(apiErr.Fields))
		for k, v := range apiErr.Fields {
			out[k] = v
		}
		return out
	}
	return nil
}

// IsUnauthorized reports whether the backend rejected the access token.
func IsUnauthorized(err error) bool {
	return errors.Is(err, httpx.ErrUnauthorized)
}

func parseError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" || len(apiErr.Message) > 300 {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	raw, ok := envelope["detail"]
	if !ok {
		raw, ok = envelope["message"]
	}
	if !ok {
		raw = envelope["error"]
	}
	decodeDetail(apiErr, raw)
	if apiErr.Message == "" && len(apiErr.Fields) == 0 {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func decodeDetail(apiErr *APIError, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		apiErr.Message = text
		return
	}

	var object map[string]any
	if err := json.Unmarshal(raw, &object); err == nil {
		fields := make(map[string]string, len(object))
		for key, value := range object {
			if msg := flattenMessage(value); msg != "" {
				fields[key] = msg
			}
		}
		apiErr.Fields = fields
		return
	}

	// List form: [{"loc": ["body", "email"], "msg": "..."}].
	var list []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		fields := make(map[string]string, len(list))
		for _, item := range list {
			if len(item.Loc) == 0 {
				apiErr.Message = item.Msg
				continue
			}
			key := fmt.Sprint(item.Loc[len(item.Loc)-1])
			fields[key] = item.Msg
		}
		if len(fields) > 0 {
			apiErr.Fields = fields
		}
	}
}

func flattenMessage(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := flattenMessage(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
