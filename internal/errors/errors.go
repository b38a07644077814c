// Package errors provides the structured error types used across sitekit
// and a collector for per-file failures that must not abort a build.
package errors

import (
	"fmt"
	"sync"
	"time"
)

// FileError records a failure tied to a single file.
type FileError struct {
	File      string
	Op        string
	Err       error
	Timestamp time.Time
}

// Error implements the error interface
func (fe *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", fe.Op, fe.File, fe.Err)
}

// Unwrap returns the underlying error.
func (fe *FileError) Unwrap() error {
	return fe.Err
}

// ErrorCollector collects per-file errors that are reported but not fatal.
type ErrorCollector struct {
	fileErrors []FileError
	mutex      sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		fileErrors: make([]FileError, 0),
	}
}

// Add adds a file error to the collector
func (ec *ErrorCollector) Add(err FileError) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	err.Timestamp = time.Now()
	ec.fileErrors = append(ec.fileErrors, err)
}

// GetErrors returns all collected file errors
func (ec *ErrorCollector) GetErrors() []FileError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]FileError, len(ec.fileErrors))
	copy(result, ec.fileErrors)
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.fileErrors) > 0
}
