package underwriting

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches every *DomainError of kind KindInvalidInput via errors.Is.
var ErrInvalidInput = errors.New("underwriting: invalid input")

// ErrorKind classifies a DomainError.
type ErrorKind string

const KindInvalidInput ErrorKind = "InvalidInput"

// DomainError reports a caller-input problem on a single field.
type DomainError struct {
	Kind   ErrorKind
	Field  string
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("underwriting: invalid %s: %s", e.Field, e.Reason)
}

func (e *DomainError) Is(target error) bool {
	return target == ErrInvalidInput && e.Kind == KindInvalidInput
}

func invalid(field, reason string) *DomainError {
	return &DomainError{Kind: KindInvalidInput, Field: field, Reason: reason}
}

// FieldErrors flattens err (possibly joined) into field -> reason.
// Errors that are not a *DomainError are ignored.
func FieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	collectFieldErrors(err, fields)
	return fields
}

func collectFieldErrors(err error, into map[string]string) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			collectFieldErrors(e, into)
		}
		return
	}
	var de *DomainError
	if errors.As(err, &de) {
		if _, seen := into[de.Field]; !seen {
			into[de.Field] = de.Reason
		}
	}
}
