package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidPath, "root %s missing", "/nope")

	if err.Code != ErrCodeInvalidPath {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidPath)
	}
	if err.Message != "root /nope missing" {
		t.Errorf("Message = %v, want %v", err.Message, "root /nope missing")
	}

	expected := "INVALID_PATH: root /nope missing"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(ErrCodeManifestWrite, cause, "write requirements.txt")

	if err.Code != ErrCodeManifestWrite {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeManifestWrite)
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching code", New(ErrCodeParse, "bad"), ErrCodeParse, true},
		{"different code", New(ErrCodeParse, "bad"), ErrCodeProbe, false},
		{"wrapped", fmt.Errorf("ctx: %w", New(ErrCodeProbe, "timeout")), ErrCodeProbe, true},
		{"plain error", errors.New("plain"), ErrCodeParse, false},
		{"nil", nil, ErrCodeParse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidPath, "root missing")); got != "root missing" {
		t.Errorf("UserMessage() = %q", got)
	}
	wrapped := Wrap(ErrCodeManifestWrite, errors.New("disk full"), "write out.txt")
	if got := UserMessage(wrapped); got != "write out.txt: disk full" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeAliasConflict, "dup")); got != ErrCodeAliasConflict {
		t.Errorf("GetCode() = %v", got)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode() = %v, want empty", got)
	}
}
