package service

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxMessageLength bounds message text after trimming.
	MaxMessageLength = 2000
	// MaxUsernameLength bounds display names; longer names are truncated.
	MaxUsernameLength = 50
	// AnonymousUser substitutes an empty display name.
	AnonymousUser = "Anonymous"
)

// Validation rejections are reported to the originating client only and
// never mutate queue state.
var (
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = fmt.Errorf("message too long (max %d characters)", MaxMessageLength)
	// ErrProcessing masks unexpected internal faults towards the client.
	ErrProcessing = errors.New("failed to process message")
)

// IsValidation reports whether err is a client-input rejection, as opposed
// to an internal processing fault.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrMessageTooLong)
}

// Word characters are Unicode letters and digits, not just ASCII.
var usernameCleaner = regexp.MustCompile(`[^\p{L}\p{N}_\-\s]`)

// ValidateMessage trims, bounds and HTML-escapes message text.
func ValidateMessage(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if len(text) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return html.EscapeString(text), nil
}

// ValidateUsername sanitizes a display name. It never fails: empty input
// falls back to a placeholder, oversized input is truncated, and disallowed
// characters are stripped before HTML escaping.
func ValidateUsername(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return AnonymousUser
	}
	// Truncate by runes so a multibyte name is never cut mid-character.
	if utf8.RuneCountInString(name) > MaxUsernameLength {
		name = string([]rune(name)[:MaxUsernameLength])
	}
	name = usernameCleaner.ReplaceAllString(name, "")
	if strings.TrimSpace(name) == "" {
		return AnonymousUser
	}
	return html.EscapeString(name)
}
