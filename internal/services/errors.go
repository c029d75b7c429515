package services

import "errors"

// Common service errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrImmutable    = errors.New("approved events cannot be modified")
	ErrInvalidInput = errors.New("invalid input")
)
