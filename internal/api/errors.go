package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned while the circuit breaker is open
var ErrUnavailable = errors.New("service unavailable, try again later")

// Error is a non-2xx answer from an endpoint. Message is the user-facing
// text; Detail holds whatever the server said about the failure.
type Error struct {
	Endpoint   string
	StatusCode int
	Message    string
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" || e.Detail == e.Message {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// Temporary reports whether the failure was on the server side
func (e *Error) Temporary() bool {
	return e.StatusCode >= 500
}

// serverMessage extracts the "error" or "detail" field of a JSON error body.
// Non-JSON bodies are returned trimmed.
func serverMessage(body []byte) string {
	if !json.Valid(body) {
		s := strings.TrimSpace(string(body))
		if len(s) > 200 {
			s = s[:200] + "..."
		}
		return s
	}
	return jsonMessage(body)
}

// jsonMessage returns the "error" or "detail" member of a JSON object, or ""
func jsonMessage(body []byte) string {
	var payload struct {
		Error  json.RawMessage `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if s := memberText(payload.Error); s != "" {
		return s
	}
	return memberText(payload.Detail)
}

// errorMember returns only the top-level "error" member of a JSON object
func errorMember(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return memberText(payload.Error)
}

// memberText renders a string member as is and any other non-null value as
// raw JSON
func memberText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
