package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes form the failure taxonomy of the lifecycle engine. Everything
// here is recoverable by the caller; only CONCURRENT_MODIFICATION and TIMEOUT
// are worth retrying without changing the request.
const (
	CodeValidation             = "VALIDATION_FAILED"
	CodeNotFound               = "NOT_FOUND"
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeAssignmentRequired     = "ASSIGNMENT_REQUIRED"
	CodeInvalidAssignee        = "INVALID_ASSIGNEE"
	CodeAlreadyAssigned        = "ALREADY_ASSIGNED"
	CodeInvalidState           = "INVALID_STATE"
	CodePolicyNotFound         = "POLICY_NOT_FOUND"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeTimeout                = "TIMEOUT"
	CodeInternal               = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

// NewCrossTenant is raised when a principal reaches for another tenant's
// data. It is deliberately shaped as NOT_FOUND so external callers cannot
// distinguish it from a missing resource.
func NewCrossTenant(resource string) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, nil)
}

func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

// NewUnauthorized reports that the actor's role lacks permission for the
// requested operation.
func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusForbidden, nil)
}

func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("transition %s -> %s is not allowed", from, to),
		http.StatusConflict,
		map[string]any{"from": from, "to": to})
}

func NewAssignmentRequired() error {
	return NewDomainError(CodeAssignmentRequired, "an active assignment is required before entering ASSIGNED", http.StatusConflict, nil)
}

func NewInvalidAssignee(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidAssignee, message, http.StatusUnprocessableEntity, details)
}

func NewAlreadyAssigned(ticketID string) error {
	return NewDomainError(CodeAlreadyAssigned, "ticket already has an active assignment", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewInvalidState(message string) error {
	return NewDomainError(CodeInvalidState, message, http.StatusConflict, nil)
}

func NewPolicyNotFound(details map[string]any) error {
	return NewDomainError(CodePolicyNotFound, "no SLA policy matches and no category default is configured", http.StatusUnprocessableEntity, details)
}

func NewConcurrentModification(ticketID string) error {
	return NewDomainError(CodeConcurrentModification, "ticket was modified concurrently, retry with fresh state", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewTimeout(err error) error {
	return &DomainError{
		Code:       CodeTimeout,
		Message:    "operation timed out",
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		de := NewTimeout(err).(*DomainError)
		return de
	}
	if errors.Is(err, pgx.ErrNoRows) {
		de := NewNotFound("resource", nil).(*DomainError)
		return de
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to the DomainError form.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// Code extracts the taxonomy code, or INTERNAL_ERROR for foreign errors.
func Code(err error) string {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Code
}

// Retryable reports whether the caller may retry the same request with fresh
// state. Every other failure requires the input or authorization to change.
func Retryable(err error) bool {
	switch Code(err) {
	case CodeConcurrentModification, CodeTimeout:
		return true
	}
	return false
}
