package tts

import (
	"errors"
	"fmt"
)

// Common errors for the speech system.
var (
	// Engine errors
	ErrEngineNotAvailable = errors.New("speech engine is not available")
	ErrVoiceNotFound      = errors.New("requested voice not found")
	ErrGenerationFailed   = errors.New("audio generation failed")
	ErrEngineClosed       = errors.New("engine has been closed")
	ErrInterrupted        = errors.New("synthesis interrupted by a newer request")

	// Request errors
	ErrEmptyText = errors.New("nothing to speak")

	// Export errors
	ErrBufferFormat = errors.New("unexpected buffer format")
	ErrExportWrite  = errors.New("failed to write export")
	ErrExportClosed = errors.New("export already finished")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")

	// Import errors
	ErrNotText = errors.New("file is not UTF-8 text")
)

// IsRecoverableError checks if an error leaves the engine usable.
func IsRecoverableError(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrEngineNotAvailable),
		errors.Is(err, ErrEngineClosed),
		errors.Is(err, ErrInvalidConfig):
		return false
	}
	return true
}

// TTSError records where an error happened.
type TTSError struct {
	Err       error  // The underlying error
	Component string // Component that generated the error
	Action    string // Action being performed when error occurred
}

// Error implements the error interface.
func (e *TTSError) Error() string {
	msg := "unknown speech error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Component != "" && e.Action != "":
		return fmt.Sprintf("%s: %s: %s", e.Component, e.Action, msg)
	case e.Component != "":
		return e.Component + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *TTSError) Unwrap() error {
	return e.Err
}

// IsRecoverable checks if the error is recoverable.
func (e *TTSError) IsRecoverable() bool {
	return IsRecoverableError(e.Err)
}

// NewTTSError creates a new error with context.
func NewTTSError(err error, component, action string) *TTSError {
	return &TTSError{
		Err:       err,
		Component: component,
		Action:    action,
	}
}
