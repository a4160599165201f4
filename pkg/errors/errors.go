package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport mapping and retry decisions.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeBusinessRule  Code = "BUSINESS_RULE_VIOLATION"
	CodeDependency    Code = "EXTERNAL_PROVIDER_ERROR"
	CodeConsistency   Code = "CONSISTENCY_GUARD_VIOLATION"
	CodeInternal      Code = "INTERNAL_ERROR"
)

// Reason narrows a business-rule violation to a specific, user-facing cause.
type Reason string

const (
	ReasonInsufficientBalance    Reason = "INSUFFICIENT_BALANCE"
	ReasonMinimumOrderValue      Reason = "MINIMUM_ORDER_VALUE"
	ReasonDuplicatePaymentMethod Reason = "DUPLICATE_PAYMENT_METHOD"
	ReasonResourceLocked         Reason = "RESOURCE_LOCKED"
	ReasonNoCourierAvailable     Reason = "NO_COURIER_AVAILABLE"
)

// Metadata drives how a code is rendered to clients and logged.
type Metadata struct {
	HTTPStatus int
	Retryable  bool
	// PublicMessage replaces the error's own message unless ExposeMessage is set.
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
	// Alert marks failures that need a human, e.g. a paid order that could not be split.
	Alert bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		ExposeMessage:  true,
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
		ExposeMessage: true,
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
		ExposeMessage: true,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
		ExposeMessage: true,
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
		ExposeMessage: true,
	},
	CodeStateConflict: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "state transition disallowed",
		ExposeMessage:  true,
		DetailsAllowed: true,
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		PublicMessage: "rate limit exceeded",
		ExposeMessage: true,
	},
	CodeBusinessRule: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "request violates a business rule",
		ExposeMessage:  true,
		DetailsAllowed: true,
	},
	CodeDependency: {
		HTTPStatus:     http.StatusBadGateway,
		Retryable:      true,
		PublicMessage:  "external provider unavailable",
		DetailsAllowed: true,
	},
	CodeConsistency: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "operation requires manual reconciliation",
		Alert:         true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	reason  Reason
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// Rule builds a business-rule violation carrying a specific reason.
func Rule(reason Reason, message string) *Error {
	return &Error{code: CodeBusinessRule, reason: reason, message: message}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Reason() Reason {
	if e == nil {
		return ""
	}
	return e.reason
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) WithReason(reason Reason) *Error {
	if e == nil {
		return nil
	}
	e.reason = reason
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// HasReason reports whether err is a business-rule violation with the given reason.
func HasReason(err error, reason Reason) bool {
	typed := As(err)
	return typed != nil && typed.reason == reason
}
