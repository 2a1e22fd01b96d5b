package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Market Data Errors
	ErrDataUnavailable     = errors.New("market data unavailable")
	ErrExchangeUnavailable = errors.New("exchange API is unavailable")
	ErrConnectionFailed    = errors.New("failed to connect to the exchange")
	ErrRateLimited         = errors.New("API rate limit exceeded")

	// Indicator Errors
	ErrIndicatorUndefined = errors.New("indicator value undefined")

	// Storage Errors
	ErrStorageConnection = errors.New("storage connection error")
	ErrQueryFailed       = errors.New("storage query failed")
	ErrUpdateFailed      = errors.New("storage update failed")

	// Delivery Errors
	ErrDeliveryFailed = errors.New("report delivery failed")
)
