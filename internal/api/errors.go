// Package api provides the HTTP client for the catalog backend with session
// token injection, forced logout on 401, and error classification.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

// Kind is the stable category of a failed backend call.
type Kind int

// Error kinds, in no particular order. Unknown is the zero value so a
// zero Error never claims to be something more specific.
const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindServerError
	KindServiceUnavailable
	KindNetworkUnreachable
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindUnauthorized:       "unauthorized",
	KindForbidden:          "forbidden",
	KindNotFound:           "not_found",
	KindConflict:           "conflict",
	KindValidation:         "validation",
	KindServerError:        "server_error",
	KindServiceUnavailable: "service_unavailable",
	KindNetworkUnreachable: "network_unreachable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors, one per kind. Use errors.Is(err, api.ErrNotFound) to check.
var (
	ErrUnknown            = errors.New("api: unknown error")
	ErrUnauthorized       = errors.New("api: unauthorized")
	ErrForbidden          = errors.New("api: forbidden")
	ErrNotFound           = errors.New("api: not found")
	ErrConflict           = errors.New("api: conflict")
	ErrValidation         = errors.New("api: validation failed")
	ErrServerError        = errors.New("api: server error")
	ErrServiceUnavailable = errors.New("api: service unavailable")
	ErrNetworkUnreachable = errors.New("api: network unreachable")
)

var kindSentinels = map[Kind]error{
	KindUnknown:            ErrUnknown,
	KindUnauthorized:       ErrUnauthorized,
	KindForbidden:          ErrForbidden,
	KindNotFound:           ErrNotFound,
	KindConflict:           ErrConflict,
	KindValidation:         ErrValidation,
	KindServerError:        ErrServerError,
	KindServiceUnavailable: ErrServiceUnavailable,
	KindNetworkUnreachable: ErrNetworkUnreachable,
}

// Sentinel returns the sentinel error for the kind.
func (k Kind) Sentinel() error {
	if s, ok := kindSentinels[k]; ok {
		return s
	}

	return ErrUnknown
}

// Canonical messages shown when the server supplies nothing better.
const (
	msgUnauthorized       = "Authentication failed. Please login again."
	msgForbidden          = "You do not have permission to perform this action."
	msgNotFound           = "Resource not found."
	msgConflict           = "Conflict: This resource already exists."
	msgBadRequest         = "Invalid request. Please check your input."
	msgUnprocessable      = "Validation error. Please check your input."
	msgServerError        = "Server error. Please try again later."
	msgServiceUnavailable = "Service unavailable. Please try again later."
	msgConnRefused        = "Cannot connect to server. Please check if the backend is running."
	msgNetwork            = "Network error. Please check your connection."
	msgUnexpected         = "An unexpected error occurred."
)

// networkErrorText is the message transport layers use for a request that
// never got a response.
const networkErrorText = "Network Error"

// Error is the classified, caller-facing view of a failed backend call.
// Status is zero when no response was received. Raw holds the response
// body, if any.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Raw     []byte
	Err     error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api: HTTP %d (%s): %s", e.Status, e.Kind, e.Message)
	}

	return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.Sentinel()}
	}

	return []error{e.Kind.Sentinel(), e.Err}
}

// Classify maps any failure to an *Error. It never panics and always
// returns a non-empty message. An *Error anywhere in the chain is returned
// as is.
//
// Precedence: transport failures without a response are NetworkUnreachable;
// response failures map by status (see ClassifyResponse); anything else is
// Unknown carrying the error's own text.
func Classify(err error) *Error {
	if err == nil {
		return &Error{Kind: KindUnknown, Message: msgUnexpected}
	}

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		if apiErr.Message == "" {
			apiErr.Message = messageForStatus(apiErr.Status, apiErr.Kind, apiErr.Raw)
		}

		return apiErr
	}

	if isConnRefused(err) {
		return &Error{Kind: KindNetworkUnreachable, Message: msgConnRefused, Err: err}
	}

	if isTransportFailure(err) {
		return &Error{Kind: KindNetworkUnreachable, Message: msgNetwork, Err: err}
	}

	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = msgUnexpected
	}

	return &Error{Kind: KindUnknown, Message: msg, Err: err}
}

// ClassifyResponse builds an *Error from a non-2xx response.
func ClassifyResponse(status int, body []byte) *Error {
	kind := kindForStatus(status)

	return &Error{
		Kind:    kind,
		Status:  status,
		Message: messageForStatus(status, kind, body),
		Raw:     body,
	}
}

// kindForStatus maps an exact HTTP status to a kind.
func kindForStatus(code int) Kind {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusInternalServerError:
		return KindServerError
	case http.StatusServiceUnavailable:
		return KindServiceUnavailable
	default:
		return KindUnknown
	}
}

// errorBody is the subset of backend error payloads used for messages.
type errorBody struct {
	Detail  any    `json:"detail"`
	Message string `json:"message"`
}

// serverText extracts detail and message from a response body. Malformed
// or non-JSON bodies yield empty strings.
func serverText(body []byte) (detail, message string) {
	if len(body) == 0 {
		return "", ""
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", ""
	}

	switch d := eb.Detail.(type) {
	case string:
		detail = d
	case nil:
	default:
		// FastAPI-style validation errors carry a list; keep it readable.
		if raw, err := json.Marshal(d); err == nil {
			detail = string(raw)
		}
	}

	return strings.TrimSpace(detail), strings.TrimSpace(eb.Message)
}

func messageForStatus(status int, kind Kind, body []byte) string {
	detail, message := serverText(body)

	switch status {
	case http.StatusBadRequest:
		return firstNonEmpty(detail, message, msgBadRequest)
	case http.StatusUnauthorized:
		return msgUnauthorized
	case http.StatusForbidden:
		return msgForbidden
	case http.StatusNotFound:
		return msgNotFound
	case http.StatusConflict:
		return firstNonEmpty(detail, msgConflict)
	case http.StatusUnprocessableEntity:
		return firstNonEmpty(detail, msgUnprocessable)
	case http.StatusInternalServerError:
		return msgServerError
	case http.StatusServiceUnavailable:
		return msgServiceUnavailable
	case 0:
		if kind == KindNetworkUnreachable {
			return msgNetwork
		}

		return msgUnexpected
	default:
		return firstNonEmpty(detail, message, fmt.Sprintf("Error %d: Something went wrong.", status))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}

func isConnRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	return strings.Contains(err.Error(), "ECONNREFUSED")
}

// isTransportFailure reports whether err describes a request that never
// produced a response.
func isTransportFailure(err error) bool {
	if errors.Is(err, ErrNetworkUnreachable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return !errors.Is(urlErr.Err, context.Canceled)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return err.Error() == networkErrorText
}

// Message returns the display message for any error.
func Message(err error) string {
	return Classify(err).Message
}

// KindOf returns the kind of any error.
func KindOf(err error) Kind {
	return Classify(err).Kind
}

// IsNetworkError reports whether err is a failure without a response.
func IsNetworkError(err error) bool {
	return KindOf(err) == KindNetworkUnreachable
}

// IsAuthError reports whether err is a 401 or 403.
func IsAuthError(err error) bool {
	switch KindOf(err) {
	case KindUnauthorized, KindForbidden:
		return true
	default:
		return false
	}
}
