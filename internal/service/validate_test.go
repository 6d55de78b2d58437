package service_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/relay-service/internal/service"
)

func TestValidateMessage(t *testing.T) {
	t.Run("trims whitespace", func(t *testing.T) {
		got, err := service.ValidateMessage("  hello  ")
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := service.ValidateMessage("")
		assert.ErrorIs(t, err, service.ErrEmptyMessage)
	})

	t.Run("rejects whitespace only", func(t *testing.T) {
		_, err := service.ValidateMessage("   \t\n ")
		assert.ErrorIs(t, err, service.ErrEmptyMessage)
	})

	t.Run("rejects oversized", func(t *testing.T) {
		_, err := service.ValidateMessage(strings.Repeat("a", service.MaxMessageLength+1))
		assert.ErrorIs(t, err, service.ErrMessageTooLong)
	})

	t.Run("accepts at the boundary", func(t *testing.T) {
		got, err := service.ValidateMessage(strings.Repeat("a", service.MaxMessageLength))
		require.NoError(t, err)
		assert.Len(t, got, service.MaxMessageLength)
	})

	t.Run("escapes html", func(t *testing.T) {
		got, err := service.ValidateMessage(`<script>alert("x")</script>`)
		require.NoError(t, err)
		assert.NotContains(t, got, "<script>")
		assert.Contains(t, got, "&lt;script&gt;")
	})
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "alice", "alice"},
		{"trimmed", "  alice  ", "alice"},
		{"empty becomes anonymous", "", service.AnonymousUser},
		{"whitespace becomes anonymous", "   ", service.AnonymousUser},
		{"specials stripped", "al<i>ce!", "alice"},
		{"only specials becomes anonymous", "<>!#$", service.AnonymousUser},
		{"hyphen and underscore kept", "team-lead_1", "team-lead_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.ValidateUsername(tt.raw))
		})
	}
}

func TestValidateUsername_TruncatesLongNames(t *testing.T) {
	got := service.ValidateUsername(strings.Repeat("b", service.MaxUsernameLength+20))
	assert.Len(t, got, service.MaxUsernameLength)
}

func TestValidateUsername_TruncatesOnRuneBoundary(t *testing.T) {
	got := service.ValidateUsername(strings.Repeat("é", service.MaxUsernameLength+10))

	assert.True(t, utf8.ValidString(got), "truncation must never split a rune")
	assert.Equal(t, service.MaxUsernameLength, utf8.RuneCountInString(got))
}

func TestValidateUsername_KeepsUnicodeLetters(t *testing.T) {
	assert.Equal(t, "Žofie", service.ValidateUsername("Žofie"))
	assert.Equal(t, "用户一", service.ValidateUsername("用户一!"))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, service.IsValidation(service.ErrEmptyMessage))
	assert.True(t, service.IsValidation(service.ErrMessageTooLong))
	assert.False(t, service.IsValidation(service.ErrProcessing))
	assert.False(t, service.IsValidation(nil))
}
