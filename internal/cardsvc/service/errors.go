package service

import "errors"

// Error kinds returned by CardService. Callers match them with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("card not found")
	ErrConflict   = errors.New("card has already been responded to")
	ErrStorage    = errors.New("storage error")
)
