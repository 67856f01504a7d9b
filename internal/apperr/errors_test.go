package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestUserMessage_BackendMessageWins(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &DomainError{Op: "issue", Status: 500, Message: "Missing required fields"})
	if got := UserMessage(err, "Failed to issue credential"); got != "Missing required fields" {
		t.Fatalf("expected backend message, got %q", got)
	}
}

func TestUserMessage_Fallbacks(t *testing.T) {
	if got := UserMessage(&DomainError{Op: "upload", Status: 500}, "Upload failed"); got != "Upload failed" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := UserMessage(&AuthError{}, "Login failed"); got != "Login failed" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := UserMessage(&TransportError{Op: "login", Err: errors.New("dial tcp")}, "Login failed"); got != NetworkMessage {
		t.Fatalf("expected network message, got %q", got)
	}
}

func TestValidationErrorCode(t *testing.T) {
	err := fmt.Errorf("upload: %w", Invalid(CodeFileTooLarge, "too big"))
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected validation error")
	}
	if v.Code != CodeFileTooLarge {
		t.Fatalf("unexpected code %q", v.Code)
	}
	if IsTransport(err) {
		t.Fatalf("validation error is not a transport error")
	}
}
