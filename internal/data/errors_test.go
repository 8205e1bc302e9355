package data

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := NewError(KindForbidden, "nope")
	if KindOf(err) != KindForbidden {
		t.Fatalf("KindOf = %q, want %q", KindOf(err), KindForbidden)
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if KindOf(wrapped) != KindForbidden {
		t.Fatal("kind must survive wrapping")
	}

	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatal("plain errors default to internal")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(NewError(KindTransient, "timeout")) {
		t.Fatal("transient errors are retryable")
	}
	if Retryable(NewError(KindValidation, "bad input")) {
		t.Fatal("validation errors are not retryable")
	}
	if Retryable(nil) {
		t.Fatal("nil is not retryable")
	}
}

func TestWrapErrorUnwraps(t *testing.T) {
	cause := errors.New("disk on fire")
	err := WrapError(KindInternal, "persisting chapter", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause must be reachable via errors.Is")
	}
}
