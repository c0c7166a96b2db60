package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrDuplicateKey marks a storage failure caused by a unique constraint.
var ErrDuplicateKey = stderrors.New("duplicate key")

// ValidationError represents a validation failure with field-level details
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s - %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// GRPCStatus returns the gRPC status for this error
func (e *ValidationError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Error())
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %s not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// GRPCStatus returns the gRPC status for this error
func (e *NotFoundError) GRPCStatus() *status.Status {
	return status.New(codes.NotFound, e.Error())
}

// AlreadyExistsError represents a resource already exists error
type AlreadyExistsError struct {
	Resource string
	Field    string
	Value    string
}

// NewAlreadyExistsError creates a new already exists error
func NewAlreadyExistsError(resource, field, value string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Resource: resource,
		Field:    field,
		Value:    value,
	}
}

// Error implements the error interface
func (e *AlreadyExistsError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s with %s %s already exists", e.Resource, e.Field, e.Value)
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// GRPCStatus returns the gRPC status for this error
func (e *AlreadyExistsError) GRPCStatus() *status.Status {
	return status.New(codes.AlreadyExists, e.Error())
}

// StorageError represents a backing-store failure not otherwise classified
type StorageError struct {
	Message string
	Err     error
}

// NewStorageError creates a new storage error
func NewStorageError(message string, err error) *StorageError {
	return &StorageError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *StorageError) Unwrap() error {
	return e.Err
}

// GRPCStatus returns the gRPC status for this error.
// The wrapped cause stays server-side.
func (e *StorageError) GRPCStatus() *status.Status {
	return status.New(codes.Internal, "internal server error")
}

// NetworkError represents a transport failure talking to a remote service
type NetworkError struct {
	Message string
	Err     error
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, err error) *NetworkError {
	return &NetworkError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// GRPCStatus returns the gRPC status for this error
func (e *NetworkError) GRPCStatus() *status.Status {
	return status.New(codes.Unavailable, e.Message)
}

// GRPCStatuser interface for errors that can provide gRPC status
type GRPCStatuser interface {
	GRPCStatus() *status.Status
}

// Kind returns the taxonomy name of err, as used in error response bodies.
// Infrastructure failures are matched first: a StorageError or NetworkError
// keeps its kind even when the cause it wraps is a domain error.
func Kind(err error) string {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		existsErr     *AlreadyExistsError
		networkErr    *NetworkError
		storageErr    *StorageError
	)
	switch {
	case stderrors.As(err, &storageErr):
		return "StorageError"
	case stderrors.As(err, &networkErr):
		return "NetworkError"
	case stderrors.As(err, &validationErr):
		return "ValidationError"
	case stderrors.As(err, &notFoundErr):
		return "NotFoundError"
	case stderrors.As(err, &existsErr):
		return "AlreadyExistsError"
	default:
		return "InternalServerError"
	}
}

// HTTPStatus maps err to the HTTP status code the REST boundary answers with.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case "ValidationError":
		return http.StatusBadRequest
	case "NotFoundError":
		return http.StatusNotFound
	case "AlreadyExistsError":
		return http.StatusConflict
	case "NetworkError":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ToGRPCStatus maps err to a gRPC status. Unclassified errors become
// codes.Internal with a generic message.
func ToGRPCStatus(err error) *status.Status {
	var s GRPCStatuser
	if stderrors.As(err, &s) {
		return s.GRPCStatus()
	}
	return status.New(codes.Internal, "internal server error")
}

// IsClientError reports whether err was caused by the caller's input rather
// than by the service.
func IsClientError(err error) bool {
	return HTTPStatus(err) < http.StatusInternalServerError
}
