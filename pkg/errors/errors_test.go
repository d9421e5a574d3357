package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		code     Code
		message  string
		cause    error
	}{
		{
			name:     "configuration error",
			category: CategoryConfiguration,
			code:     CodeMissingToken,
			message:  "bank token is not configured",
			cause:    nil,
		},
		{
			name:     "network error with cause",
			category: CategoryNetwork,
			code:     CodeBadStatus,
			message:  "bank API request failed",
			cause:    errors.New("HTTP 403"),
		},
		{
			name:     "storage error with cause",
			category: CategoryStorage,
			code:     CodeTxCommit,
			message:  "storage error during credit",
			cause:    errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *Error
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}

			if tt.cause != nil {
				want := fmt.Sprintf("%s: %v", tt.message, tt.cause)
				if err.Error() != want {
					t.Errorf("expected error string %q, got %q", want, err.Error())
				}
				if !errors.Is(err, tt.cause) {
					t.Error("expected errors.Is to find the cause")
				}
			} else if err.Error() != tt.message {
				t.Errorf("expected error string %q, got %q", tt.message, err.Error())
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CategoryNetwork, CodeBadStatus, "ignored") != nil {
		t.Error("wrapping a nil error should return nil")
	}
}

func TestWithContext(t *testing.T) {
	err := NetworkError(CodeBadContentType, "client-info", nil)
	if err.Context["endpoint"] != "client-info" {
		t.Errorf("expected endpoint context, got %v", err.Context)
	}

	err.WithContext("account", "0")
	if err.Context["account"] != "0" {
		t.Errorf("expected account context, got %v", err.Context)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", NetworkError(CodeBadStatus, "statement", nil), true},
		{"wrapped network error", fmt.Errorf("fetch: %w", NetworkError(CodeRequestTimedOut, "statement", nil)), true},
		{"storage error", StorageError(CodeTxBegin, "credit", nil), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAsError(t *testing.T) {
	inner := ValidationError(CodeInvalidCode, "code", "code must be 6 characters")
	wrapped := fmt.Errorf("check: %w", inner)

	e, ok := AsError(wrapped)
	if !ok {
		t.Fatal("expected to extract an *Error from the chain")
	}
	if e.Code != CodeInvalidCode {
		t.Errorf("expected code %s, got %s", CodeInvalidCode, e.Code)
	}

	if _, ok := AsError(errors.New("plain")); ok {
		t.Error("plain errors should not extract to *Error")
	}
}
