package services

import "errors"

var (
	ErrIDExists   = errors.New("a new entity cannot already have an id")
	ErrIDNull     = errors.New("invalid id: null")
	ErrIDInvalid  = errors.New("invalid id: body id does not match path id")
	ErrIDNotFound = errors.New("entity not found")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrReference  = errors.New("invalid entity reference")
)
