package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrSessionExpired is returned when a 401 could not be recovered by a refresh
var ErrSessionExpired = errors.New("session expired, please log in again")

// FieldError is one validation failure reported by the server
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	return e.Message
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Message turns any error into the string shown to the user
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// parseError extracts a display message from an error body. It understands a
// plain "detail" string, a "detail" validation array, a "message" string, and
// the details.errors array; field messages are joined with "; ".
func parseError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Details struct {
			Errors []FieldError `json:"errors"`
		} `json:"details"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = fallbackMessage(status, body)
		return apiErr
	}

	apiErr.Fields = payload.Details.Errors

	var detail string
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil && detail != "" {
		apiErr.Message = detail
		return apiErr
	}

	if len(apiErr.Fields) == 0 && len(payload.Detail) > 0 {
		apiErr.Fields = detailFields(payload.Detail)
	}

	switch {
	case len(apiErr.Fields) > 0:
		apiErr.Message = joinFields(apiErr.Fields)
	case payload.Message != "":
		apiErr.Message = payload.Message
	default:
		apiErr.Message = fallbackMessage(status, nil)
	}
	return apiErr
}

// detailFields reads a detail array in either {field,message} or {loc,msg} form
func detailFields(raw json.RawMessage) []FieldError {
	var items []struct {
		Field   string        `json:"field"`
		Message string        `json:"message"`
		Type    string        `json:"type"`
		Loc     []interface{} `json:"loc"`
		Msg     string        `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	fields := make([]FieldError, 0, len(items))
	for _, it := range items {
		fe := FieldError{Field: it.Field, Message: it.Message, Type: it.Type}
		if fe.Message == "" {
			fe.Message = it.Msg
		}
		if fe.Field == "" && len(it.Loc) > 0 {
			fe.Field = fmt.Sprint(it.Loc[len(it.Loc)-1])
		}
		fields = append(fields, fe)
	}
	return fields
}

func joinFields(fields []FieldError) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Field != "" {
			parts = append(parts, f.Field+": "+f.Message)
		} else {
			parts = append(parts, f.Message)
		}
	}
	return strings.Join(parts, "; ")
}

func fallbackMessage(status int, body []byte) string {
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", status)
}
