package service

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("discount not found")
	ErrConflict   = errors.New("discount code already exists")
)
