package idempotency

import "errors"

// Errors surfaced by key validation and the HTTP middleware.
var (
	ErrKeyRequired       = errors.New("idempotency key is required for this operation")
	ErrKeyTooLong        = errors.New("idempotency key exceeds maximum length")
	ErrKeyInvalid        = errors.New("invalid idempotency key format")
	ErrParameterMismatch = errors.New("request parameters differ from original request with this idempotency key")
	ErrConcurrentRequest = errors.New("a request with this idempotency key is currently being processed")
	ErrNotFound          = errors.New("idempotency key not found")
)

// ErrMessageAlreadyProcessed is returned by MessageRepository.MarkProcessed
// when another consumer recorded the message first. Callers treat it as a
// successful no-op.
var ErrMessageAlreadyProcessed = errors.New("message has already been processed")
