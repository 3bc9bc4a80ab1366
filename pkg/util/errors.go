// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages
var (
	ErrNotConnected = errors.New("device not connected")
	ErrNotFound     = errors.New("resource not found")
	ErrCancelled    = errors.New("operation cancelled")
	ErrTimeout      = errors.New("operation timed out")
)

// OpError represents a failed operation with device context.
type OpError struct {
	Op     string // "connect", "exec", "write", ...
	Device string // device name, or "" for process-level
	Err    error
}

func (e *OpError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Device, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
