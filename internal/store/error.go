package store

import (
	"errors"
)

var (
	ErrStorageLimit      = errors.New("payload exceeds storage limit")
	ErrIntegrityMismatch = errors.New("record set integrity mismatch")
	ErrInvalidFormat     = errors.New("invalid backup format")
	ErrRecoveryFailed    = errors.New("data recovery failed")
)
