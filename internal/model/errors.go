package model

import (
	"errors"
	"fmt"
)

// Sentinels matched through errors.Is against ParseError and DecodeError kinds
var (
	ErrMalformed     = errors.New("malformed document")
	ErrInvalidBase64 = errors.New("invalid base64 payload")
	ErrNotAPdf       = errors.New("payload is not a PDF")
	ErrCorruptPDF    = errors.New("payload is a corrupt PDF")
)

// ParseErrorKind classifies document parse failures
type ParseErrorKind string

const (
	ParseMalformed ParseErrorKind = "MALFORMED"
)

// ParseError represents a structural failure to read the source document
type ParseError struct {
	Kind    ParseErrorKind
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Kind, e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

func (e *ParseError) Is(target error) bool {
	return target == ErrMalformed && e.Kind == ParseMalformed
}

// NewParseError creates a new parse error
func NewParseError(kind ParseErrorKind, field, message string, cause error) *ParseError {
	return &ParseError{
		Kind:    kind,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// NewMalformedError creates a parse error for input that is not valid UTF-8 XML
func NewMalformedError(field, message string, cause error) *ParseError {
	return NewParseError(ParseMalformed, field, message, cause)
}

// DecodeErrorKind classifies embedded payload failures
type DecodeErrorKind string

const (
	DecodeInvalidBase64 DecodeErrorKind = "INVALID_BASE64"
	DecodeNotAPdf       DecodeErrorKind = "NOT_A_PDF"
	DecodeCorruptPDF    DecodeErrorKind = "CORRUPT_PDF"
)

// DecodeError represents a failure to turn an attachment into PDF bytes.
// It never aborts document processing.
type DecodeError struct {
	Kind    DecodeErrorKind
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrInvalidBase64:
		return e.Kind == DecodeInvalidBase64
	case ErrNotAPdf:
		return e.Kind == DecodeNotAPdf
	case ErrCorruptPDF:
		return e.Kind == DecodeCorruptPDF
	}
	return false
}

// NewDecodeError creates a new decode error
func NewDecodeError(kind DecodeErrorKind, message string, cause error) *DecodeError {
	return &DecodeError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}
