// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"context"
	"errors"
	"fmt"
)

// Common errors that services and adapters can return.
var (
	// ErrInvalidTrack is returned when a track has no playable audio URL.
	ErrInvalidTrack = errors.New("invalid track: missing audio url")

	// ErrQueueEmpty is returned when queue operations are attempted on an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrInvalidPosition is returned when seeking to an invalid position.
	ErrInvalidPosition = errors.New("invalid playback position")

	// ErrUnsupportedFormat is returned when a media resource cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrAudioUnavailable is returned when the build has no audio output.
	ErrAudioUnavailable = errors.New("audio output unavailable in this build")

	// ErrHandleUnloaded is returned when a command is issued on a released handle.
	ErrHandleUnloaded = errors.New("media handle unloaded")

	// ErrPlaybackFailed is returned when playback cannot be started.
	ErrPlaybackFailed = errors.New("playback failed")

	// ErrControllerClosed is returned after the playback controller has shut down.
	ErrControllerClosed = errors.New("playback controller closed")

	// ErrStreamTooLarge is returned when a media resource exceeds the configured size cap.
	ErrStreamTooLarge = errors.New("media stream exceeds size limit")
)

// MediaError represents an error from a media primitive.
// This wraps low-level fetch/decode/output errors with additional context.
type MediaError struct {
	Op      string // Operation that failed (e.g., "fetch", "decode", "output")
	URI     string // Media URI (if applicable)
	Code    int    // HTTP status code or library error code (0 if none)
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *MediaError) Error() string {
	if e.URI != "" {
		return fmt.Sprintf("media %s failed for '%s': %s (code: %d)", e.Op, e.URI, e.Message, e.Code)
	}
	return fmt.Sprintf("media %s failed: %s (code: %d)", e.Op, e.Message, e.Code)
}

// Unwrap returns the underlying error.
func (e *MediaError) Unwrap() error {
	return e.Err
}

// NewMediaError creates a new MediaError.
func NewMediaError(op, uri string, code int, message string, err error) *MediaError {
	return &MediaError{
		Op:      op,
		URI:     uri,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// LoadErrorKind classifies load failures for display.
type LoadErrorKind string

const (
	LoadErrorNetwork     LoadErrorKind = "network"
	LoadErrorUnsupported LoadErrorKind = "unsupported"
	LoadErrorInvalid     LoadErrorKind = "invalid"
	LoadErrorCanceled    LoadErrorKind = "canceled"
	LoadErrorUnknown     LoadErrorKind = "unknown"
)

// LoadError describes why a track could not be loaded.
type LoadError struct {
	Kind    LoadErrorKind
	TrackID string
	Err     error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s failed (%s): %v", e.TrackID, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError classifies err and wraps it in a LoadError for trackID.
func NewLoadError(trackID string, err error) *LoadError {
	return &LoadError{
		Kind:    ClassifyLoadError(err),
		TrackID: trackID,
		Err:     err,
	}
}

// ClassifyLoadError maps an error returned by a media primitive onto a LoadErrorKind.
func ClassifyLoadError(err error) LoadErrorKind {
	switch {
	case err == nil:
		return LoadErrorUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return LoadErrorCanceled
	case errors.Is(err, ErrInvalidTrack):
		return LoadErrorInvalid
	case errors.Is(err, ErrUnsupportedFormat):
		return LoadErrorUnsupported
	}

	var mediaErr *MediaError
	if errors.As(err, &mediaErr) {
		switch mediaErr.Op {
		case "fetch":
			return LoadErrorNetwork
		case "decode", "probe":
			return LoadErrorUnsupported
		}
	}
	return LoadErrorUnknown
}

// CatalogError represents a failure reported by the music catalog.
type CatalogError struct {
	Op      string // Catalog operation (e.g., "featured", "albums")
	Status  int    // HTTP status code (0 if no reply was received)
	Code    int    // Catalog error code
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog %s failed: %s (http %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("catalog %s failed: %s (code: %d)", e.Op, e.Message, e.Code)
}

// Unwrap returns the underlying error.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// NewCatalogError creates a new CatalogError.
func NewCatalogError(op string, status, code int, message string, err error) *CatalogError {
	return &CatalogError{
		Op:      op,
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string      // Field that failed validation
	Value   interface{} // Value that failed validation
	Message string      // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "PlaybackController", "BrowseService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
