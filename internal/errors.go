package internal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("product not found")
	ErrValidation     = errors.New("validation failed")
	ErrUnknownField   = errors.New("unknown field")
	ErrEmptySelection = errors.New("no products selected")
)

type ParseKind string

const (
	ParseEmptySheet ParseKind = "empty_sheet"
	ParseMalformed  ParseKind = "malformed"
)

// ParseError aborts a whole import; no candidates are produced.
type ParseError struct {
	Kind ParseKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("import: %s", e.Kind)
	}
	return fmt.Sprintf("import: %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type GatewayError struct {
	Op  string
	ID  string
	Err error
}

func (e *GatewayError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

type ReferenceError struct {
	Err error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference generation: %v", e.Err)
}

func (e *ReferenceError) Unwrap() error { return e.Err }

type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
