package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrConfiguration    = errors.New("configuration error")
	ErrUpstream         = errors.New("upstream failure")
	ErrDocumentNotFound = errors.New("document not found")
)

var (
	ErrMissingFile  = fmt.Errorf("%w: no file provided", ErrInvalidInput)
	ErrFileTooLarge = fmt.Errorf("%w: file too large", ErrInvalidInput)
	ErrUploadFailed = fmt.Errorf("%w: upload failed", ErrUpstream)
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Cause returns the innermost message of a wrapped error chain, which is the
// part worth surfacing to callers as diagnostics.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	for {
		var next error
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			errs := e.Unwrap()
			if len(errs) == 0 {
				return err.Error()
			}
			next = errs[len(errs)-1]
		case interface{ Unwrap() error }:
			next = e.Unwrap()
		}
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
