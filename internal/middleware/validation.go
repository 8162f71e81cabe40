package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ValidatePrompt validates a generation prompt.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return errors.New("prompt cannot be empty")
	}
	if len(prompt) > 100000 {
		return errors.New("prompt exceeds maximum length")
	}
	if !utf8.ValidString(prompt) {
		return errors.New("prompt must be valid UTF-8")
	}
	return nil
}

// ValidateChatID validates a chat id. v0 chat ids are opaque strings, so the
// check is shape-only.
func ValidateChatID(id string) error {
	if id == "" {
		return errors.New("chat id cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("chat id exceeds maximum length")
	}
	if strings.ContainsAny(id, " /\\") {
		return errors.New("invalid chat id format")
	}
	return nil
}

// ValidateFileName validates a generated file path.
func ValidateFileName(name string) error {
	if name == "" {
		return errors.New("file name cannot be empty")
	}
	if strings.HasPrefix(name, "/") || strings.Contains(name, "..") {
		return errors.New("invalid file name")
	}
	if !utf8.ValidString(name) {
		return errors.New("file name must be valid UTF-8")
	}
	return nil
}
