package security

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxFilterLength defines the maximum allowed length, in characters, of a list filter value
	MaxFilterLength = 100

	// LikeEscapeChar is the escape character used by EscapeLike. Queries must declare it with ESCAPE '\'.
	LikeEscapeChar = `\`
)

var (
	// ErrFilterTooLong is returned when a filter value exceeds MaxFilterLength
	ErrFilterTooLong = errors.New("filter value too long")
	// ErrFilterInvalidChars is returned when a filter value contains control characters
	ErrFilterInvalidChars = errors.New("filter value contains invalid characters")
)

// ValidateFilterValue trims a filter value and rejects values that are too long
// or carry control characters. Values are always bound as query parameters, so
// this only keeps garbage out of the database and the logs.
func ValidateFilterValue(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	if utf8.RuneCountInString(value) > MaxFilterLength {
		return "", ErrFilterTooLong
	}

	for _, char := range value {
		if char == utf8.RuneError || unicode.IsControl(char) {
			return "", ErrFilterInvalidChars
		}
	}

	return value, nil
}

// EscapeLike prepares a value for use inside a LIKE pattern so that
// %, _ and the escape character itself match literally.
func EscapeLike(value string) string {
	if value == "" {
		return ""
	}

	value = strings.ReplaceAll(value, LikeEscapeChar, LikeEscapeChar+LikeEscapeChar)
	value = strings.ReplaceAll(value, "%", LikeEscapeChar+"%")
	value = strings.ReplaceAll(value, "_", LikeEscapeChar+"_")

	return value
}
