package attendance

import (
	"errors"
)

var (
	ErrDuplicate    = errors.New("attendance already marked")
	ErrNotFound     = errors.New("attendance record not found")
	ErrInvalidRole  = errors.New("unknown role category")
	ErrEmptyPrefect = errors.New("prefect number is required")
	ErrMemberExists = errors.New("member already registered")
)
