package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/campusmess/messmate/internal/errs"
)

// StatusError is a non-2xx response passed through to the caller. The body
// is kept verbatim; Message carries the server's error text when the body
// follows the backend's {"message": ...} / {"detail": ...} convention.
type StatusError struct {
	Code    int
	Message string
	Body    []byte
}

func newStatusError(code int, raw []byte) *StatusError {
	var envelope struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(raw, &envelope)
	msg := envelope.Message
	if msg == "" {
		msg = envelope.Detail
	}
	if msg == "" {
		msg = envelope.Error
	}
	return &StatusError{Code: code, Message: msg, Body: raw}
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("http %d", e.Code)
}

// Unwrap maps status codes onto the shared sentinels so callers can use
// errors.Is without inspecting codes.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden:
		return errs.ErrUnauthorized
	case e.Code == http.StatusBadRequest:
		return errs.ErrInvalidInput
	case e.Code == http.StatusNotFound:
		return errs.ErrNotFound
	case e.Code == http.StatusConflict:
		return errs.ErrAlreadyExists
	case e.Code >= 500:
		return errs.ErrServerUnavailable
	}
	return nil
}
