package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeModelInconsistent, "duplicate row name: %s", "c42")

	if err.Code != ErrCodeModelInconsistent {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeModelInconsistent)
	}
	if err.Message != "duplicate row name: c42" {
		t.Errorf("Message = %q", err.Message)
	}
	want := "MODEL_INCONSISTENT: duplicate row name: c42"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(ErrCodeInternal, cause, "saving run")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return cause")
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeInvariantViolation, "constraint 3 uncategorized")

	if !Is(err, ErrCodeInvariantViolation) {
		t.Error("Is() should match the error's own code")
	}
	if Is(err, ErrCodeNotFound) {
		t.Error("Is() should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrCodeNotFound) {
		t.Error("Is() should not match a plain error")
	}
}

func TestIsWrappedChain(t *testing.T) {
	inner := New(ErrCodeModelInconsistent, "bad model")
	outer := fmt.Errorf("building matrix: %w", inner)

	if !Is(outer, ErrCodeModelInconsistent) {
		t.Error("Is() should find code through fmt.Errorf wrapping")
	}
	if GetCode(outer) != ErrCodeModelInconsistent {
		t.Errorf("GetCode() = %q, want %q", GetCode(outer), ErrCodeModelInconsistent)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidInput, "no such detector: foo")
	if got := UserMessage(err); got != "no such detector: foo" {
		t.Errorf("UserMessage() = %q", got)
	}

	plain := stderrors.New("plain error")
	if got := UserMessage(plain); got != "plain error" {
		t.Errorf("UserMessage() = %q", got)
	}
}
