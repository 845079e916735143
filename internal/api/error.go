package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/wire"
)

// Kind is the closed set of client failure classes.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidTarget
	KindNetworkUnavailable
	KindTimeout
	KindCancelled
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindServer
	KindNoData
	KindDecodeFailed
	KindEncodeFailed
)

var kindNames = [...]string{
	KindUnknown:            "unknown",
	KindInvalidTarget:      "invalid_request_target",
	KindNetworkUnavailable: "network_unavailable",
	KindTimeout:            "timeout",
	KindCancelled:          "cancelled",
	KindBadRequest:         "bad_request",
	KindUnauthorized:       "unauthorized",
	KindForbidden:          "forbidden",
	KindNotFound:           "not_found",
	KindConflict:           "conflict",
	KindRateLimited:        "rate_limited",
	KindServer:             "server_error",
	KindNoData:             "no_data",
	KindDecodeFailed:       "decode_failed",
	KindEncodeFailed:       "encode_failed",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Error is a classified client failure.
type Error struct {
	Kind       Kind
	Status     int           // HTTP status for protocol errors, 0 otherwise
	Message    string        // server- or transport-provided detail, may be empty
	RetryAfter time.Duration // rate-limited only; 0 when unknown
	Err        error         // underlying cause
}

// Sentinels for errors.Is matching by kind.
var (
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrNetworkUnavailable = &Error{Kind: KindNetworkUnavailable}
	ErrCancelled          = &Error{Kind: KindCancelled}
)

func newError(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Message: msg, Err: cause}
}

// Error returns the human-readable description.
func (e *Error) Error() string { return e.Description() }

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind and the cross-layer sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	switch target {
	case errs.ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case errs.ErrNotFound:
		return e.Kind == KindNotFound
	case errs.ErrConflict, errs.ErrAlreadyExists:
		return e.Kind == KindConflict
	case errs.ErrRateLimited:
		return e.Kind == KindRateLimited
	}
	return false
}

// Description is the user-facing text.
func (e *Error) Description() string {
	switch e.Kind {
	case KindInvalidTarget:
		return "Invalid request URL"
	case KindNetworkUnavailable:
		return "No internet connection"
	case KindTimeout:
		return "The request timed out"
	case KindCancelled:
		return "The request was cancelled"
	case KindBadRequest:
		return withDetail("Bad request", e.Message)
	case KindUnauthorized:
		return "Your session has expired. Please sign in again."
	case KindForbidden:
		return "You don't have permission to perform this action"
	case KindNotFound:
		return "The requested resource was not found"
	case KindConflict:
		return withDetail("Conflict", e.Message)
	case KindRateLimited:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("Too many requests. Try again in %d seconds.", int(e.RetryAfter.Seconds()))
		}
		return "Too many requests. Please try again later."
	case KindServer:
		return withDetail(fmt.Sprintf("Server error (%d)", e.Status), e.Message)
	case KindNoData:
		return "No data received from the server"
	case KindDecodeFailed:
		return "Failed to read the server response"
	case KindEncodeFailed:
		return "Failed to prepare the request"
	default:
		if e.Message != "" {
			return e.Message
		}
		return "An unknown error occurred"
	}
}

func withDetail(title, msg string) string {
	if msg == "" {
		return title
	}
	return title + ": " + msg
}

// IsRecoverable is true for failures a plain retry may fix.
func (e *Error) IsRecoverable() bool {
	switch e.Kind {
	case KindNetworkUnavailable, KindTimeout, KindRateLimited, KindServer:
		return true
	default:
		return false
	}
}

// Suggestion is an optional remediation hint.
func (e *Error) Suggestion() string {
	switch e.Kind {
	case KindNetworkUnavailable:
		return "Check your internet connection and try again."
	case KindTimeout:
		return "The server is taking too long to respond. Try again."
	case KindUnauthorized:
		return "Sign in again to continue."
	case KindRateLimited:
		return "Wait a moment before retrying."
	case KindServer:
		return "Something went wrong on our side. Try again later."
	case KindBadRequest:
		return "Check your input and try again."
	default:
		return ""
	}
}

// KindOf returns the kind of err, KindUnknown when it is not a typed error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Classify maps a non-2xx status and its body to a typed error.
// The body is searched for a {"message": ...} envelope.
func Classify(status int, body []byte) *Error {
	var env wire.ErrorEnvelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			env = wire.ErrorEnvelope{}
		}
	}
	e := &Error{Status: status, Message: env.Message}
	switch {
	case status == http.StatusBadRequest:
		e.Kind = KindBadRequest
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status == http.StatusForbidden:
		e.Kind = KindForbidden
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusConflict:
		e.Kind = KindConflict
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		if env.RetryAfter != nil && *env.RetryAfter > 0 {
			e.RetryAfter = time.Duration(*env.RetryAfter) * time.Second
		}
	case status >= 500 && status <= 599:
		e.Kind = KindServer
	default:
		e.Kind = KindUnknown
		if e.Message == "" {
			e.Message = fmt.Sprintf("unexpected status code %d", status)
		}
	}
	return e
}

// ClassifyResponse is Classify plus the Retry-After header, which wins over the body.
func ClassifyResponse(resp *http.Response, body []byte) *Error {
	e := Classify(resp.StatusCode, body)
	if e.Kind == KindRateLimited {
		if s := strings.TrimSpace(resp.Header.Get("Retry-After")); s != "" {
			if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
				e.RetryAfter = time.Duration(secs) * time.Second
			}
		}
	}
	return e
}

// ClassifyTransport maps a transport-level failure to a typed error.
func ClassifyTransport(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, context.Canceled) {
		return newError(KindCancelled, "", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, "", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return newError(KindTimeout, "", err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EHOSTUNREACH):
		return newError(KindNetworkUnavailable, "", err)
	}
	return newError(KindUnknown, err.Error(), err)
}
