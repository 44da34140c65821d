package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindsSurviveWrapping(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{NotFound("Slot not found"), ErrNotFound},
		{Validation("Start time must be before end time"), ErrValidation},
		{Conflict("Slot is already full"), ErrConflict},
		{Forbidden("Access denied"), ErrForbidden},
		{Unauthorized("Incorrect credentials"), ErrUnauthorized},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("create booking: %w", tc.err)
		if !errors.Is(wrapped, tc.kind) {
			t.Fatalf("expected %v to match kind %v", wrapped, tc.kind)
		}
		if got := Message(wrapped); got != tc.err.Error() {
			t.Fatalf("Message = %q, want %q", got, tc.err.Error())
		}
	}
}

func TestKindsAreDistinct(t *testing.T) {
	if errors.Is(NotFound("x"), ErrConflict) {
		t.Fatal("not found must not match conflict")
	}
	if Message(errors.New("plain")) != "" {
		t.Fatal("plain errors carry no message")
	}
}
