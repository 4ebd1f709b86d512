package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("comment %q not found", "c1"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("key %s already in store", "c1"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "InvalidRequest wraps ErrInvalidRequest",
			err:       InvalidRequest("invalid delete request"),
			target:    ErrInvalidRequest,
			wantMatch: true,
		},
		{
			name:      "Precondition wraps ErrPrecondition",
			err:       Precondition("post %s is read-only", "u1"),
			target:    ErrPrecondition,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrConflict",
			err:       NotFound("site not found"),
			target:    ErrConflict,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := Conflict("key %s already in store", "c42")
	if got := err.Error(); got != "key c42 already in store" {
		t.Errorf("Error() = %q, want %q", got, "key c42 already in store")
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("image %q not found", "pic.png")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}
