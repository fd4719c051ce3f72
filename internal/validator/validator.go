// Package validator checks and sanitizes API input.
package validator

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrInvalidCampaign  = errors.New("invalid campaign name")
	ErrTooManyFields    = errors.New("too many metadata fields")
	ErrInputTooLong     = errors.New("input exceeds maximum length")
	ErrInvalidCharacter = errors.New("input contains invalid characters")
	ErrEmptyInput       = errors.New("input cannot be empty")
)

const (
	MaxEmailLen         = 254
	MaxCampaignLen      = 255
	MaxMetadataFields   = 50
	MaxMetadataKeyLen   = 64
	MaxMetadataValueLen = 1024
	maxFilenameLen      = 255
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ValidateEmail accepts a bare RFC 5322 address. Case and surrounding
// whitespace are ignored.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case email == "":
		return ErrEmptyInput
	case utf8.RuneCountInString(email) > MaxEmailLen:
		return ErrInputTooLong
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateCampaign checks a campaign name: non-empty, bounded and free of control characters.
func ValidateCampaign(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return ErrEmptyInput
	case utf8.RuneCountInString(name) > MaxCampaignLen:
		return ErrInputTooLong
	case hasControlChars(name):
		return ErrInvalidCharacter
	}
	return nil
}

// ValidateMetadata bounds the opaque CRM reference fields carried by a participant.
func ValidateMetadata(metadata map[string]string) error {
	if len(metadata) > MaxMetadataFields {
		return ErrTooManyFields
	}
	for k, v := range metadata {
		if strings.TrimSpace(k) == "" {
			return ErrEmptyInput
		}
		if utf8.RuneCountInString(k) > MaxMetadataKeyLen || utf8.RuneCountInString(v) > MaxMetadataValueLen {
			return ErrInputTooLong
		}
		if hasControlChars(k) {
			return ErrInvalidCharacter
		}
	}
	return nil
}

// ValidatePagination clamps limit to (0, MaxLimit], using DefaultLimit when
// unset, and offset to >= 0.
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return min(limit, MaxLimit), max(offset, 0)
}

// SanitizeFilename turns an arbitrary identifier into a single path element.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
	name = truncate(strings.TrimSpace(stripControl(name)), maxFilenameLen)
	if name == "" {
		return "unnamed"
	}
	return name
}

// SanitizeString drops control characters, trims, and cuts the result to
// maxLength runes. maxLength <= 0 means unbounded.
func SanitizeString(input string, maxLength int) string {
	return truncate(strings.TrimSpace(stripControl(input)), maxLength)
}

func isControl(r rune) bool { return r < 32 || r == 127 }

func hasControlChars(s string) bool {
	return strings.IndexFunc(s, isControl) >= 0
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if isControl(r) {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
