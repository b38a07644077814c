package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeSecurity   ErrorType = "security"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// SiteError is a structured error type with context.
type SiteError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Path        string
	Recoverable bool
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Path != "" {
		parts = append(parts, e.Path+":")
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *SiteError) Is(target error) bool {
	var t *SiteError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *SiteError) WithContext(key string, value interface{}) *SiteError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath records the file or directory the error refers to.
func (e *SiteError) WithPath(path string) *SiteError {
	e.Path = path

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *SiteError {
	return &SiteError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewSecurityError creates a security error.
func NewSecurityError(code, message string) *SiteError {
	return &SiteError{
		Type:        ErrorTypeSecurity,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeBuild,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *SiteError {
	return &SiteError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Recoverable
	}

	return false
}

// IsSecurityError checks if an error is security-related.
func IsSecurityError(err error) bool {
	return hasType(err, ErrorTypeSecurity)
}

// HasCode reports whether err wraps a SiteError with the given code.
func HasCode(err error, code string) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Code == code
	}

	return false
}

func hasType(err error, t ErrorType) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Type == t
	}

	return false
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level matching its type. Recoverable errors
// are warnings; security and unrecoverable errors are errors.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var se *SiteError
	if !errors.As(err, &se) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	fields := []interface{}{"code", se.Code, "path", se.Path}
	for k, v := range se.Context {
		fields = append(fields, k, v)
	}

	switch {
	case IsSecurityError(err):
		h.logger.Error(ctx, err, "Security error occurred", fields...)
	case IsRecoverable(err):
		h.logger.Warn(ctx, err, string(se.Type)+" error occurred", fields...)
	default:
		h.logger.Error(ctx, err, string(se.Type)+" error occurred", fields...)
	}
}

// Common error codes.
const (
	ErrCodeSiteNotFound    = "ERR_SITE_NOT_FOUND"
	ErrCodeInvalidPath     = "ERR_INVALID_PATH"
	ErrCodePathTraversal   = "ERR_PATH_TRAVERSAL"
	ErrCodeEmptyManifest   = "ERR_EMPTY_MANIFEST"
	ErrCodeInvalidManifest = "ERR_INVALID_MANIFEST"
	ErrCodeConfigInvalid   = "ERR_CONFIG_INVALID"
	ErrCodeCopyFailed      = "ERR_COPY_FAILED"
	ErrCodeWriteFailed     = "ERR_WRITE_FAILED"
	ErrCodeRenderFailed    = "ERR_RENDER_FAILED"
	ErrCodeAuditFindings   = "ERR_AUDIT_FINDINGS"
	ErrCodeInternalError   = "ERR_INTERNAL"
)

// ErrSiteNotFound reports a missing built site directory.
func ErrSiteNotFound(dir string, cause error) *SiteError {
	return NewIOError(
		ErrCodeSiteNotFound,
		`site directory not found, run "mkdocs build" first`,
		cause,
	).WithPath(dir)
}

// ErrInvalidPath creates a path validation error.
func ErrInvalidPath(path, reason string) *SiteError {
	return NewValidationError(ErrCodeInvalidPath, reason).WithPath(path)
}

// ErrPathTraversal creates a path traversal security error.
func ErrPathTraversal(path string) *SiteError {
	return NewSecurityError(ErrCodePathTraversal, "path traversal attempt").WithPath(path)
}

// ErrEmptyManifest reports a site without any cacheable asset.
func ErrEmptyManifest(dir string) *SiteError {
	return NewValidationError(ErrCodeEmptyManifest, "no cacheable assets found").WithPath(dir)
}

// ErrInvalidManifest reports a web app manifest that could not be parsed.
func ErrInvalidManifest(path string, cause error) *SiteError {
	err := NewValidationError(ErrCodeInvalidManifest, "invalid web app manifest").WithPath(path)
	err.Cause = cause

	return err
}
