package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilterValue(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		expectError error
		expected    string
	}{
		{
			name:     "empty value",
			value:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			value:    "   ",
			expected: "",
		},
		{
			name:     "simple value",
			value:    "jo",
			expected: "jo",
		},
		{
			name:     "value is trimmed",
			value:    "  john doe ",
			expected: "john doe",
		},
		{
			name:     "email-like value",
			value:    "john.doe+test@example.com",
			expected: "john.doe+test@example.com",
		},
		{
			name:     "sql keywords are plain text",
			value:    "Selena O'Neil",
			expected: "Selena O'Neil",
		},
		{
			name:     "non ascii letters",
			value:    "Zoë",
			expected: "Zoë",
		},
		{
			name:     "exactly max length",
			value:    strings.Repeat("a", MaxFilterLength),
			expected: strings.Repeat("a", MaxFilterLength),
		},
		{
			name:        "too long",
			value:       strings.Repeat("a", MaxFilterLength+1),
			expectError: ErrFilterTooLong,
		},
		{
			name:        "control character",
			value:       "jo\x00hn",
			expectError: ErrFilterInvalidChars,
		},
		{
			name:        "invalid utf8",
			value:       "jo\xffhn",
			expectError: ErrFilterInvalidChars,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFilterValue(tt.value)

			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		{value: "", expected: ""},
		{value: "john", expected: "john"},
		{value: "john%", expected: `john\%`},
		{value: "jane_doe", expected: `jane\_doe`},
		{value: `back\slash`, expected: `back\\slash`},
		{value: `%_\`, expected: `\%\_\\`},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscapeLike(tt.value))
		})
	}
}
