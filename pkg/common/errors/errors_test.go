package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// storeFailure builds the chain the Redis store returns for a failed read.
func storeFailure(op, key string, err error, timedOut bool) error {
	cause := fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	if timedOut {
		cause = fmt.Errorf("%w: %w: %w", ErrStoreUnavailable, ErrTimeout, err)
	}
	return NewOperationError("store", op, cause).WithContext("key " + key)
}

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "timed out read",
			err:  storeFailure("SCARD", "tumblr:queue:posts", context.DeadlineExceeded, true),
			want: "store.SCARD failed: store unavailable: operation timed out: context deadline exceeded (key tumblr:queue:posts)",
		},
		{
			name: "refused read",
			err:  storeFailure("HGETALL", "tumblr:work_stats", errors.New("connection refused"), false),
			want: "store.HGETALL failed: store unavailable: connection refused (key tumblr:work_stats)",
		},
		{
			name: "ping has no key",
			err:  NewOperationError("store", "PING", ErrStoreUnavailable),
			want: "store.PING failed: store unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOperationError_Chain(t *testing.T) {
	refused := errors.New("connection refused")

	tests := []struct {
		name          string
		err           error
		wantTimeout   bool
		wantRetryable bool
		wantCause     error
	}{
		{"deadline", storeFailure("SCARD", "k", context.DeadlineExceeded, true), true, true, context.DeadlineExceeded},
		{"refused", storeFailure("HGETALL", "k", refused, false), false, true, refused},
		{"canceled", storeFailure("SCARD", "k", context.Canceled, false), false, true, context.Canceled},
		{"plain", errors.New("boom"), false, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, ErrTimeout); got != tt.wantTimeout {
				t.Errorf("errors.Is(ErrTimeout) = %v, want %v", got, tt.wantTimeout)
			}
			if got := IsTemporary(tt.err); got != tt.wantTimeout {
				t.Errorf("IsTemporary() = %v, want %v", got, tt.wantTimeout)
			}
			if got := IsRetryable(tt.err); got != tt.wantRetryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.wantRetryable)
			}
			if tt.wantCause != nil && !errors.Is(tt.err, tt.wantCause) {
				t.Errorf("chain lost the underlying cause %v", tt.wantCause)
			}
			if IsConfiguration(tt.err) {
				t.Error("store failure reported as configuration error")
			}
		})
	}
}

func TestOperationError_As(t *testing.T) {
	err := fmt.Errorf("sample cycle: %w", storeFailure("SCARD", "tumblr:queue:blogs", context.DeadlineExceeded, true))

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("errors.As failed for %v", err)
	}
	if opErr.Module != "store" || opErr.Operation != "SCARD" {
		t.Errorf("got %s.%s, want store.SCARD", opErr.Module, opErr.Operation)
	}
	if opErr.Context != "key tumblr:queue:blogs" {
		t.Errorf("Context = %q, want %q", opErr.Context, "key tumblr:queue:blogs")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("config", "log_format", "xml", "unsupported value").
		WithHint("use one of text, json")

	want := "config: invalid log_format=xml (unsupported value) - use one of text, json"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := fmt.Errorf("failed to load configuration: %w", err)
	if !IsValidationError(wrapped) {
		t.Error("IsValidationError() = false for wrapped validation error")
	}
	if !IsConfiguration(wrapped) {
		t.Error("IsConfiguration() = false for wrapped validation error")
	}
	if IsRetryable(wrapped) {
		t.Error("validation error reported as retryable")
	}

	bare := NewValidationError("sampler", "store", nil, "cannot be nil")
	if got := bare.Error(); got != "sampler: invalid store=<nil> (cannot be nil)" {
		t.Errorf("Error() without hint = %q", got)
	}
}

func TestIsConfiguration_FlagErrors(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrInvalidConfiguration, errors.New("unknown flag --bogus"))

	if !IsConfiguration(err) {
		t.Error("IsConfiguration() = false for wrapped flag error")
	}
	if IsValidationError(err) {
		t.Error("flag error is not a *ValidationError")
	}
}
