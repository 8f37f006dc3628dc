package entity

import "errors"

var (
	ErrModelTransport   = errors.New("model transport failed")
	ErrLoopExhausted    = errors.New("iteration limit reached without a final answer")
	ErrExchangeInFlight = errors.New("another exchange is already running")

	ErrOperationExists  = errors.New("operation already registered")
	ErrInvalidOperation = errors.New("invalid operation")
)
