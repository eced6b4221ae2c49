package entity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrKind classifies a pipeline failure so callers can tell a local
// validation problem from an upstream one without string inspection.
type ErrKind int

const (
	ErrKindUnknown ErrKind = iota
	ErrKindValidation
	ErrKindAuth
	ErrKindNetwork
	ErrKindTimeout
	ErrKindUpstream
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindValidation:
		return "validation"
	case ErrKindAuth:
		return "auth"
	case ErrKindNetwork:
		return "network"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind   ErrKind
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(op string, err error) *Error {
	return &Error{Kind: ErrKindValidation, Op: op, Err: err}
}

func NewAuthError(op string, err error) *Error {
	return &Error{Kind: ErrKindAuth, Op: op, Err: err}
}

func NewNetworkError(op string, err error) *Error {
	return &Error{Kind: ErrKindNetwork, Op: op, Err: err}
}

func NewTimeoutError(op string, err error) *Error {
	return &Error{Kind: ErrKindTimeout, Op: op, Err: err}
}

func NewUpstreamError(op string, status int, body string) *Error {
	return &Error{Kind: ErrKindUpstream, Op: op, Status: status, Body: body}
}

// NewTransportError classifies a failed outbound call as a timeout or a
// plain network failure.
func NewTransportError(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(op, err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return NewTimeoutError(op, err)
	}
	return NewNetworkError(op, err)
}

// KindOf extracts the classification from err, or ErrKindUnknown when
// err does not carry one.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
