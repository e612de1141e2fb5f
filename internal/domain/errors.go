package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDataLoad          = errors.New("catalog data could not be loaded")
	ErrStorage           = errors.New("storage unavailable")
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateItem     = errors.New("item already in cart")
	ErrStaleResponse     = errors.New("response superseded by a newer request")
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrNoVariantSelected = errors.New("no variant matches the selection")
)

// ValidationError lists the form fields that block an action.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return "missing or invalid: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
