package realtime

import (
	"errors"
	"fmt"
	"time"
)

// Error categories. Match with errors.Is.
var (
	ErrConfiguration = errors.New("realtime: configuration error")
	ErrValidation    = errors.New("realtime: validation error")
	ErrTransport     = errors.New("realtime: transport error")
	ErrHandler       = errors.New("realtime: handler error")
)

var (
	// ErrSecretNotConfigured is returned when the channel secret is empty.
	ErrSecretNotConfigured = fmt.Errorf("%w: channel secret is not configured", ErrConfiguration)

	// ErrTransportClosed is returned by transports used after Close.
	ErrTransportClosed = fmt.Errorf("%w: transport closed", ErrTransport)
)

// ValidationError describes a malformed descriptor, role or event.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// TransportError wraps a failure reported by the pub/sub backend.
type TransportError struct {
	Channel string
	Op      string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s on %s: %v", e.Op, e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NewTransportError wraps err unless it already is a *TransportError.
func NewTransportError(channel, op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Channel: channel, Op: op, Err: err}
}

// HandlerError records a failed or panicking event handler.
type HandlerError struct {
	Role    Role
	Channel string
	Event   string
	Err     error
	Panic   bool
	At      time.Time
}

func (e *HandlerError) Error() string {
	if e.Panic {
		return fmt.Sprintf("handler for role %s panicked on %s/%s: %v", e.Role, e.Channel, e.Event, e.Err)
	}
	return fmt.Sprintf("handler for role %s failed on %s/%s: %v", e.Role, e.Channel, e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

func (e *HandlerError) Is(target error) bool {
	return target == ErrHandler
}
