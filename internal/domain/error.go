package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound              = errors.New("entity not found")
	ErrAlreadyExists         = errors.New("entity already exists")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrDuplicateInvoice      = errors.New("an open invoice already exists for this subscription")
	ErrSubscriptionNotActive = errors.New("subscription is not active")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrMalformedPayload      = errors.New("malformed payload")

	// Storage errors
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Side channels
	ErrGateway   = errors.New("payment gateway error")
	ErrTransport = errors.New("transport error")
)

// ValidationError carries a client-visible message about bad admin input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// GatewayError is returned by payment providers on a non-2xx response or a
// failed status flag. Message is the provider's own wording.
type GatewayError struct {
	Provider string
	Status   int
	Message  string
}

func (e *GatewayError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *GatewayError) Unwrap() error { return ErrGateway }

// TransportError wraps a failed best-effort delivery (email, rate source).
type TransportError struct {
	Channel string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }
