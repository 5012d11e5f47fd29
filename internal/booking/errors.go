package booking

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the failure type surfaced by every booking operation. Each kind
// maps to an HTTP status so the API layer needs no switch of its own.
type Error struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

const (
	KindValidation    = "validation"
	KindAuthorization = "authorization"
	KindState         = "state"
	KindWindow        = "window"
	KindNotFound      = "not_found"
)

// Validation reports malformed input, interval inversion, overlap conflicts,
// out-of-semester bounds or malformed metadata.
func Validation(format string, args ...any) error {
	return &Error{Code: http.StatusBadRequest, Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Authorization reports an actor lacking the role or authentication required
// for the requested transition.
func Authorization(format string, args ...any) error {
	return &Error{Code: http.StatusForbidden, Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// State reports an operation attempted from a state that does not permit it.
// The message carries the current state so the caller can resynchronize.
func State(format string, args ...any) error {
	return &Error{Code: http.StatusConflict, Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// Window reports an action attempted outside its permitted real-time window.
// The message carries the human-readable wait or overrun duration.
func Window(format string, args ...any) error {
	return &Error{Code: http.StatusUnprocessableEntity, Kind: KindWindow, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing or out-of-scope entity.
func NotFound(entity string) error {
	return &Error{Code: http.StatusNotFound, Kind: KindNotFound, Message: entity + " not found"}
}

// StatusCode resolves the HTTP status for an error; unknown errors are
// internal.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return http.StatusInternalServerError
}

// KindOf returns the error kind, or "" for unknown errors.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
