package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Sentinel errors for non-field business rejections.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned on a role or ownership violation.
	ErrForbidden = errors.New("forbidden")
	// ErrReservationOverlap is returned when a reservation conflicts with an
	// existing one on the same lab and date.
	ErrReservationOverlap = errors.New("lab is already reserved in that time slot")
	// ErrInsufficientStock is returned when equipment availability cannot
	// cover the requested loan quantity.
	ErrInsufficientStock = errors.New("insufficient equipment stock")
	// ErrInvalidDateRange is returned when a report range has from > to.
	ErrInvalidDateRange = errors.New("invalid date range")
)

// ValidationError is a field-attributed input rejection.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation builds a single-field validation error.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// InvalidTransitionError is returned when an operation is not legal from the
// entity's current status.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot transition from %s to %s", e.Entity, e.From, e.To)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     map[string]string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:  e.Message,
		Code:   e.Code,
		Fields: e.Fields,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var validation *ValidationError
	if errors.As(err, &validation) {
		httpErr := NewHTTPError(http.StatusBadRequest, validation.Error(), "VALIDATION_ERROR")
		httpErr.Fields = validation.Fields
		return httpErr
	}

	var transition *InvalidTransitionError
	if errors.As(err, &transition) {
		return NewHTTPError(http.StatusConflict, transition.Error(), "INVALID_TRANSITION")
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrReservationOverlap):
		return NewHTTPError(http.StatusConflict, err.Error(), "RESERVATION_OVERLAP")
	case errors.Is(err, ErrInsufficientStock):
		return NewHTTPError(http.StatusConflict, err.Error(), "INSUFFICIENT_STOCK")
	case errors.Is(err, ErrInvalidDateRange):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_DATE_RANGE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
