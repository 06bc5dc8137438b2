package driver

import (
	"errors"
	"fmt"
)

var (
	ErrNotSupported    = errors.New("not supported")
	ErrDriverNotFound  = errors.New("driver not found")
	ErrDuplicateDriver = errors.New("driver already registered")
	ErrUnknownField    = errors.New("unknown notification field")
	ErrMissingBaseID   = errors.New("notification has no base id")
)

// NotSupportedError is returned by a driver method the backend does not implement.
type NotSupportedError struct {
	Driver string
	Method string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s: %s is either not supported or has to be overridden", e.Driver, e.Method)
}

func (e *NotSupportedError) Unwrap() error {
	return ErrNotSupported
}

// DriverNotFoundError carries the connection string no registered driver matched.
type DriverNotFoundError struct {
	ConnectionString string
	Cause            error
}

func (e *DriverNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("driver not found for connection string: %s: %v", e.ConnectionString, e.Cause)
	}
	return fmt.Sprintf("driver not found for connection string: %s", e.ConnectionString)
}

func (e *DriverNotFoundError) Unwrap() error {
	return ErrDriverNotFound
}
