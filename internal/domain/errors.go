// Package domain provides the request, result and error types shared by the
// dispatcher, the response classifier and the media loader.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind represents the category of an API error.
type ErrorKind string

const (
	// Transport level.
	KindOffline    ErrorKind = "offline"
	KindInvalidURL ErrorKind = "invalid_url"
	KindHTTP       ErrorKind = "http"
	KindTransport  ErrorKind = "transport"

	// Parsing level.
	KindEmptyBody     ErrorKind = "empty_body"
	KindMalformedJSON ErrorKind = "malformed_json"

	// Business level, driven by meta.status.
	KindLoginTokenInvalid       ErrorKind = "login_token_invalid"
	KindValidationFailed        ErrorKind = "validation_failed"
	KindOAuthTokenInvalid       ErrorKind = "oauth_token_invalid"
	KindSessionExpired          ErrorKind = "session_expired"
	KindOrderRejected           ErrorKind = "order_rejected"
	KindExerciseRejected        ErrorKind = "exercise_rejected"
	KindSignInFailed            ErrorKind = "sign_in_failed"
	KindUserAlreadyExists       ErrorKind = "user_already_exists"
	KindOAuthAlreadyLinked      ErrorKind = "oauth_already_linked"
	KindEmailExistsWithoutOAuth ErrorKind = "email_exists_without_oauth"
	KindMaintenance             ErrorKind = "maintenance"
	KindUnexpected              ErrorKind = "unexpected"
	KindOther                   ErrorKind = "other"

	// Local persistence of a media cache file failed.
	KindIO ErrorKind = "io"
)

// MaintenanceKind selects how a maintenance notice should be presented.
type MaintenanceKind int

const (
	MaintenanceNone MaintenanceKind = iota
	// MaintenanceDialog shows the messages in a dialog.
	MaintenanceDialog
	// MaintenanceDialogWithDetail shows a dialog with a button opening DetailURL.
	MaintenanceDialogWithDetail
	// MaintenanceForcedWebView opens DetailURL full screen.
	MaintenanceForcedWebView
)

func (k MaintenanceKind) String() string {
	switch k {
	case MaintenanceDialog:
		return "dialog"
	case MaintenanceDialogWithDetail:
		return "dialog_with_detail"
	case MaintenanceForcedWebView:
		return "forced_web_view"
	default:
		return "none"
	}
}

// APIError is the single error type delivered by the dispatcher and the
// media loader. Which fields are populated depends on Kind.
type APIError struct {
	// Kind is the category of error
	Kind ErrorKind

	// Status is the HTTP status for KindHTTP and KindMalformedJSON
	Status int

	// BusinessStatus is meta.status for business-level kinds
	BusinessStatus int

	// URL and RawBody are populated for KindMalformedJSON
	URL     string
	RawBody string

	// Messages are the envelope's meta.message entries
	Messages []string

	Maintenance MaintenanceKind
	DetailURL   string

	// Cause is the underlying transport or filesystem error, if any
	Cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	switch e.Kind {
	case KindHTTP:
		fmt.Fprintf(&b, " (status %d)", e.Status)
	case KindMalformedJSON:
		fmt.Fprintf(&b, " (status %d, url %s)", e.Status, e.URL)
	case KindMaintenance:
		fmt.Fprintf(&b, " (%s)", e.Maintenance)
	}
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports kind equality so the sentinels below work with errors.Is.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// NewAPIError creates a new API error.
func NewAPIError(kind ErrorKind) *APIError {
	return &APIError{Kind: kind}
}

// WithMessages attaches the envelope messages.
func (e *APIError) WithMessages(messages []string) *APIError {
	e.Messages = messages
	return e
}

// WithStatus sets the HTTP status.
func (e *APIError) WithStatus(status int) *APIError {
	e.Status = status
	return e
}

// WithBusinessStatus sets meta.status.
func (e *APIError) WithBusinessStatus(status int) *APIError {
	e.BusinessStatus = status
	return e
}

// WithCause wraps an underlying error.
func (e *APIError) WithCause(err error) *APIError {
	e.Cause = err
	return e
}

// Kind sentinels for errors.Is. Never mutate these.
var (
	ErrOffline                 = NewAPIError(KindOffline)
	ErrInvalidURL              = NewAPIError(KindInvalidURL)
	ErrHTTP                    = NewAPIError(KindHTTP)
	ErrTransport               = NewAPIError(KindTransport)
	ErrEmptyBody               = NewAPIError(KindEmptyBody)
	ErrMalformedJSON           = NewAPIError(KindMalformedJSON)
	ErrLoginTokenInvalid       = NewAPIError(KindLoginTokenInvalid)
	ErrValidationFailed        = NewAPIError(KindValidationFailed)
	ErrOAuthTokenInvalid       = NewAPIError(KindOAuthTokenInvalid)
	ErrSessionExpired          = NewAPIError(KindSessionExpired)
	ErrOrderRejected           = NewAPIError(KindOrderRejected)
	ErrExerciseRejected        = NewAPIError(KindExerciseRejected)
	ErrSignInFailed            = NewAPIError(KindSignInFailed)
	ErrUserAlreadyExists       = NewAPIError(KindUserAlreadyExists)
	ErrOAuthAlreadyLinked      = NewAPIError(KindOAuthAlreadyLinked)
	ErrEmailExistsWithoutOAuth = NewAPIError(KindEmailExistsWithoutOAuth)
	ErrMaintenance             = NewAPIError(KindMaintenance)
	ErrUnexpected              = NewAPIError(KindUnexpected)
	ErrOther                   = NewAPIError(KindOther)
	ErrIO                      = NewAPIError(KindIO)
)

// Convenience constructors

// HTTPStatus creates an Http(status) error.
func HTTPStatus(status int) *APIError {
	return NewAPIError(KindHTTP).WithStatus(status)
}

// MalformedJSON creates a MalformedJson(url, status, rawBody) error.
func MalformedJSON(url string, status int, rawBody []byte) *APIError {
	e := NewAPIError(KindMalformedJSON).WithStatus(status)
	e.URL = url
	e.RawBody = string(rawBody)
	return e
}

// Maintenance creates a maintenance error of the given presentation kind.
func Maintenance(kind MaintenanceKind, messages []string, detailURL string) *APIError {
	e := NewAPIError(KindMaintenance).WithMessages(messages)
	e.Maintenance = kind
	e.DetailURL = detailURL
	return e
}

// KindOf returns the kind of err if it is (or wraps) an *APIError, or "".
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Kind
	}
	return ""
}
