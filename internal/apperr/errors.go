package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidMode     = errors.New("invalid open mode")
	ErrInvalidSettings = errors.New("invalid settings")
)
