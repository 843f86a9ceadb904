package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrUserExists          = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAdminSignupDisabled = errors.New("admin accounts cannot be self-registered")
	ErrProductNotFound     = errors.New("product not found")
	ErrEmptyOrder          = errors.New("order has no products")
	ErrInvalidQuantity     = fmt.Errorf("quantity must be between 1 and %d", MaxLineQuantity)
)

// ValidationError lists the offending fields of a request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ProductMissingError reports an order line whose product no longer exists.
type ProductMissingError struct {
	ID string
}

func (e *ProductMissingError) Error() string {
	return fmt.Sprintf("product with id %s not found", e.ID)
}

func (e *ProductMissingError) Unwrap() error { return ErrProductNotFound }
