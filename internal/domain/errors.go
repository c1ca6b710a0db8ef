package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthenticated is the provider's signal that a token exists but does
// not belong to a valid user. It is benign and maps to a not-found login.
var ErrUnauthenticated = errors.New("identity provider rejected token")

// CodedError is an error carrying a numeric status code suitable for display.
type CodedError interface {
	error
	Code() int
}

// APIError is the error body returned by the backend REST API.
type APIError struct {
	StatusCode int      `json:"statusCode"`
	Messages   []string `json:"message"`
	Tag        string   `json:"error"`
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	switch {
	case e.Tag != "" && msg != "":
		return fmt.Sprintf("api %d %s: %s", e.StatusCode, e.Tag, msg)
	case e.Tag != "":
		return fmt.Sprintf("api %d %s", e.StatusCode, e.Tag)
	case msg != "":
		return fmt.Sprintf("api %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("api %d", e.StatusCode)
}

// UnmarshalJSON accepts "message" as either a string or a list of strings.
func (e *APIError) UnmarshalJSON(data []byte) error {
	var raw struct {
		StatusCode int             `json:"statusCode"`
		Message    json.RawMessage `json:"message"`
		Tag        string          `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.StatusCode = raw.StatusCode
	e.Tag = raw.Tag
	e.Messages = nil
	if len(raw.Message) == 0 || string(raw.Message) == "null" {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw.Message, &single); err == nil {
		e.Messages = []string{single}
		return nil
	}
	return json.Unmarshal(raw.Message, &e.Messages)
}

// Code returns the HTTP status reported by the backend.
func (e *APIError) Code() int { return e.StatusCode }

// Tagged reports whether the body carried an "error" field.
func (e *APIError) Tagged() bool { return e.Tag != "" }

// LocalError is raised on this side of the wire: transport failures,
// undecodable bodies, missing runtime capabilities.
type LocalError struct {
	Message    string
	StatusCode int
	Err        error
}

// NewLocalError builds a LocalError with the given message and code.
func NewLocalError(message string, code int) *LocalError {
	return &LocalError{Message: message, StatusCode: code}
}

// WrapLocalError builds a 500 LocalError around cause.
func WrapLocalError(message string, cause error) *LocalError {
	return &LocalError{Message: message, StatusCode: http.StatusInternalServerError, Err: cause}
}

func (e *LocalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LocalError) Unwrap() error { return e.Err }

// Code returns the local status code.
func (e *LocalError) Code() int { return e.StatusCode }
