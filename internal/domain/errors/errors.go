package errors

import "errors"

var (
	ErrAlreadyExists       = errors.New("already exists")
	ErrNotFound            = errors.New("not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupportedProvider = errors.New("unsupported payment provider")
	ErrCorrelationMismatch = errors.New("payment does not belong to order")
	ErrTransactionClaimed  = errors.New("transaction already credited to another payment")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrDiscountExhausted   = errors.New("discount code cannot be redeemed")
	ErrInvalidDiscount     = errors.New("invalid discount code")
	ErrPersistence         = errors.New("persistence failure")
)
