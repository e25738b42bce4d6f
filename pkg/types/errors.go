package types

import "errors"

// Domain errors for entity validation and lookup
var (
	ErrMissingID         = errors.New("entity id is required")
	ErrMissingName       = errors.New("entity name is required")
	ErrInvalidEntityType = errors.New("invalid entity type")
	ErrMissingFilePath   = errors.New("entity file path is required")
	ErrInvalidLineRange  = errors.New("line range must satisfy 1 <= line_start <= line_end")
	ErrEntityNotFound    = errors.New("entity not found")
)
