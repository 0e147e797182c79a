package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// reservedUsernames may not appear anywhere in a username, case-insensitively.
var reservedUsernames = []string{"admin", "system", "bot", "null", "undefined"}

// truncateRunes caps s at max runes, never splitting a multibyte character.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// ValidateUsername trims and checks a username: 2-20 characters and no
// reserved word. Lengths count runes, not bytes. Returns the cleaned value.
func ValidateUsername(username string) (string, error) {
	cleaned := truncateRunes(strings.TrimSpace(username), 100)
	length := utf8.RuneCountInString(cleaned)
	if length < 2 {
		return "", fmt.Errorf("%w: must be at least 2 characters", ErrInvalidUsername)
	}
	if length > 20 {
		return "", fmt.Errorf("%w: must be at most 20 characters", ErrInvalidUsername)
	}
	lower := strings.ToLower(cleaned)
	for _, word := range reservedUsernames {
		if strings.Contains(lower, word) {
			return "", fmt.Errorf("%w: name is not allowed", ErrInvalidUsername)
		}
	}
	return cleaned, nil
}

// ValidateRoomTitle trims and checks a room title: at least 3 characters.
func ValidateRoomTitle(title string) (string, error) {
	cleaned := truncateRunes(strings.TrimSpace(title), 100)
	if utf8.RuneCountInString(cleaned) < 3 {
		return "", fmt.Errorf("%w: must be at least 3 characters", ErrInvalidTitle)
	}
	return cleaned, nil
}

// NormalizeRoomCode uppercases and trims a join code before lookup.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
