package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Pricing-time errors (client-caused, surfaced as rejections)
	ErrInvalidReference   = errors.New("unknown catalog reference")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidComputation = errors.New("pricing computation yielded an invalid total")

	// Session-management errors
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	ErrAlreadySessioned     = errors.New("order already has an active checkout session")

	// Webhook-time errors
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrUnknownSession   = errors.New("no payment matches the session identifier")

	// Storage errors
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	// ErrOperationFailed marks transient persistence failures; callers may retry.
	ErrOperationFailed = errors.New("storage operation failed")
)
