package models

import "errors"

// Common errors used throughout the application
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrServiceNotFound = errors.New("service not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrNoSession       = errors.New("no active session")
)
