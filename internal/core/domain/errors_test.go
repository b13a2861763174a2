package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapErrorKeepsKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(ErrUploadFailed, "upload", fmt.Errorf("put blob: %w", cause))

	if !IsKind(err, ErrUpstream) || !IsKind(err, ErrUploadFailed) {
		t.Fatalf("expected upstream upload failure kind, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if got := Cause(err); got != "connection reset" {
		t.Fatalf("Cause() = %q", got)
	}
}

func TestMissingFileIsValidation(t *testing.T) {
	if !IsKind(ErrMissingFile, ErrInvalidInput) {
		t.Fatalf("ErrMissingFile must be an invalid input error")
	}
	if WrapError(ErrInvalidInput, "op", nil) != nil {
		t.Fatalf("WrapError(nil) must be nil")
	}
}
