package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedModelOutput marks model text that could not be parsed as the expected payload.
	ErrMalformedModelOutput = errors.New("malformed model output")
	// ErrTransport marks network or HTTP failures reaching a provider.
	ErrTransport = errors.New("transport failure")
)

// MalformedOutputError carries the parser diagnostic and the raw model text.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedModelOutput, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

func (e *MalformedOutputError) Is(target error) bool {
	return target == ErrMalformedModelOutput
}

// TransportError wraps a failed request. StatusCode is zero when no response arrived.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
