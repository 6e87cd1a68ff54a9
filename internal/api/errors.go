package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized is returned for 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrMalformed is returned when a 2xx body is missing required fields
	// or is not valid JSON.
	ErrMalformed = errors.New("malformed response")
)

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Code, http.StatusText(e.Code), msg)
	}
	return fmt.Sprintf("api: %d %s", e.Code, http.StatusText(e.Code))
}

// Message extracts the backend's {"message": ...} text, falling back to the
// raw body when it is short plain text.
func (e *StatusError) Message() string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal([]byte(e.Body), &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		return body.Error
	}
	s := strings.TrimSpace(e.Body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// Is maps status codes onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

// Message returns a user-facing description of err for status bars.
func Message(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		if msg := se.Message(); msg != "" {
			return msg
		}
		return http.StatusText(se.Code)
	}
	if errors.Is(err, ErrMalformed) {
		return "unexpected response from server"
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
