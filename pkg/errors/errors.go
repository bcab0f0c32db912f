package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrValidation
	ErrConflict
	ErrRelationSync
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

// IsNotFound reports whether err wraps an AppError with ErrNotFound.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrNotFound
}

// ValidationError is returned when a required field is missing or malformed.
// Nothing has been written when it is returned.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Code() ErrorCode {
	return ErrValidation
}

// ConflictError is returned when a provider would be double-booked.
type ConflictError struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("provider already booked by appointment %s on %s at %s", e.AppointmentID, e.Date, e.Time)
}

func (e *ConflictError) Code() ErrorCode {
	return ErrConflict
}

// RelationSyncError means the appointment row is committed but its
// participant links could not be replaced.
type RelationSyncError struct {
	AppointmentID uuid.UUID
	Kind          string
	Err           error
}

func (e *RelationSyncError) Error() string {
	return fmt.Sprintf("failed to sync %s links for appointment %s: %v", e.Kind, e.AppointmentID, e.Err)
}

func (e *RelationSyncError) Unwrap() error {
	return e.Err
}

func (e *RelationSyncError) Code() ErrorCode {
	return ErrRelationSync
}

// DispatchWarning aggregates recipients without a resolvable contact address.
// It never fails the operation it is attached to.
type DispatchWarning struct {
	Recipients []uuid.UUID `json:"recipients"`
}

func (w *DispatchWarning) Error() string {
	ids := make([]string, 0, len(w.Recipients))
	for _, id := range w.Recipients {
		ids = append(ids, id.String())
	}
	return fmt.Sprintf("no contact address for %d recipient(s): %s", len(w.Recipients), strings.Join(ids, ", "))
}

// Rejected reports whether err means the operation was refused before any write.
func Rejected(err error) bool {
	var v *ValidationError
	var c *ConflictError
	return errors.As(err, &v) || errors.As(err, &c)
}
