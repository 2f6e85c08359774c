package main

import (
	"errors"
	"testing"
)

func TestExitCodeForUserError(t *testing.T) {
	err := asUserError(errors.New("bad definition"))
	if got := exitCodeFor(err); got != 1 {
		t.Fatalf("expected exit code 1 for a user error, got %d", got)
	}
}

func TestExitCodeForInternalError(t *testing.T) {
	if got := exitCodeFor(errors.New("cache backend unavailable")); got != 2 {
		t.Fatalf("expected exit code 2 for an internal error, got %d", got)
	}
}

func TestAsUserErrorNilIsNil(t *testing.T) {
	if asUserError(nil) != nil {
		t.Fatal("expected asUserError(nil) to return nil")
	}
}

func TestUserErrorUnwraps(t *testing.T) {
	cause := errors.New("bad flag")
	wrapped := asUserError(cause)
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected the wrapped user error to unwrap to its cause")
	}
}
