package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Database errors
	ErrCodeDatabaseQuery ErrorCode = "DATABASE_QUERY"

	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL"

	// Authentication/Authorization errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Player errors
	ErrCodeStorageUnavailable        ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeStorageWrite              ErrorCode = "STORAGE_WRITE"
	ErrCodePlaybackSourceUnavailable ErrorCode = "PLAYBACK_SOURCE_UNAVAILABLE"
	ErrCodePremiumRequired           ErrorCode = "PREMIUM_REQUIRED"
	ErrCodeDownloadFetch             ErrorCode = "DOWNLOAD_FETCH"
	ErrCodeTelemetry                 ErrorCode = "TELEMETRY"
)

// AppError represents a structured application error
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Cause    error                  `json:"-"`
	HTTPCode int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetHTTPCode returns the appropriate HTTP status code
func (e *AppError) GetHTTPCode() int {
	if e.HTTPCode != 0 {
		return e.HTTPCode
	}
	return getDefaultHTTPCode(e.Code)
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(cause error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Cause:    cause,
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// getDefaultHTTPCode returns the default HTTP status code for an error code
func getDefaultHTTPCode(code ErrorCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeMissingField:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodePremiumRequired:
		return http.StatusForbidden
	case ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeStorageWrite:
		return http.StatusInsufficientStorage
	case ErrCodeDownloadFetch:
		return http.StatusBadGateway
	case ErrCodePlaybackSourceUnavailable:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors

// DatabaseError creates a database error
func DatabaseError(operation string, cause error) *AppError {
	return Wrap(cause, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithDetail("operation", operation)
}

// StorageUnavailable creates an error for an offline store that cannot be opened
func StorageUnavailable(cause error) *AppError {
	return Wrap(cause, ErrCodeStorageUnavailable, "offline storage is unavailable")
}

// StorageWriteError creates an error for a failed offline store write
func StorageWriteError(episodeID string, cause error) *AppError {
	return Wrap(cause, ErrCodeStorageWrite, "failed to save episode audio").
		WithDetail("episode_id", episodeID)
}

// PlaybackSourceUnavailable creates an error for an episode with no playable source
func PlaybackSourceUnavailable(episodeID string) *AppError {
	return New(ErrCodePlaybackSourceUnavailable, "no audio source available for episode").
		WithDetail("episode_id", episodeID)
}

// PremiumRequired creates an error for a gated episode requested without entitlement
func PremiumRequired(episodeID string) *AppError {
	return New(ErrCodePremiumRequired, "premium subscription required").
		WithDetail("episode_id", episodeID)
}

// DownloadFetchError creates an error for a failed proxy fetch
func DownloadFetchError(episodeID string, cause error) *AppError {
	return Wrap(cause, ErrCodeDownloadFetch, "failed to fetch episode audio").
		WithDetail("episode_id", episodeID)
}

// TelemetryError creates an error for a failed play report
func TelemetryError(episodeID string, cause error) *AppError {
	return Wrap(cause, ErrCodeTelemetry, "failed to record play").
		WithDetail("episode_id", episodeID)
}

// Is checks if an error, or any error it wraps, carries the given code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// GetHTTPCode extracts the HTTP status code from an error
func GetHTTPCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.GetHTTPCode()
	}
	return http.StatusInternalServerError
}