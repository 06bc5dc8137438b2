package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrMalformedTrace     = errors.New("malformed trace")
	ErrMissingTraceID     = errors.New("notification has no trace id")
)

// MalformedTraceError lists the entries left out of a report. The report it accompanies
// is still usable.
type MalformedTraceError struct {
	TraceIDs []string
}

func (e *MalformedTraceError) Error() string {
	return fmt.Sprintf("%s: excluded trace ids [%s]", ErrMalformedTrace, strings.Join(e.TraceIDs, ", "))
}

func (e *MalformedTraceError) Unwrap() error {
	return ErrMalformedTrace
}
