package errors

import (
	"fmt"
	"net/http"

	"github.com/CompraLens/compralens-backend/logger"
)

type ErrorType string

const (
	ValidationError      ErrorType = "VALIDATION_ERROR"
	NotFoundError        ErrorType = "NOT_FOUND"
	ServerError          ErrorType = "SERVER_ERROR"
	ExternalServiceError ErrorType = "EXTERNAL_SERVICE_ERROR"
	ProcessingError      ErrorType = "DOCUMENT_PROCESSING_ERROR"
	UnsupportedFileError ErrorType = "UNSUPPORTED_FILE_TYPE"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As chains.
func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the HTTP status associated with the error.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

// New creates a new AppError
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// Helper functions for common errors
func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// UnsupportedFile reports an upload whose sniffed content type cannot be
// routed to any document analysis path.
func UnsupportedFile(filename, detectedType string) *AppError {
	return &AppError{
		Type:       UnsupportedFileError,
		Message:    "Unsupported document type",
		Detail:     fmt.Sprintf("file %s detected as %s", filename, detectedType),
		HTTPStatus: http.StatusUnsupportedMediaType,
	}
}

// NewExternalServiceError logs the upstream failure and returns a sanitized
// error for the caller. The raw error is retained for unwrapping.
func NewExternalServiceError(service string, err error) *AppError {
	logger.GetLogger().Errorw("External service error", "service", service, "error", err)
	return &AppError{
		Type:       ExternalServiceError,
		Message:    fmt.Sprintf("%s request failed", service),
		Detail:     "Please try again later",
		HTTPStatus: http.StatusBadGateway,
		Raw:        err,
	}
}

// DocumentProcessingFailed marks a per-document failure that was not
// recoverable by any fallback extraction path.
func DocumentProcessingFailed(filename string, err error) *AppError {
	return &AppError{
		Type:       ProcessingError,
		Message:    "Document processing failed",
		Detail:     fmt.Sprintf("file: %s", filename),
		HTTPStatus: http.StatusUnprocessableEntity,
		Raw:        err,
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case ExternalServiceError:
		return http.StatusBadGateway
	case ProcessingError:
		return http.StatusUnprocessableEntity
	case UnsupportedFileError:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
