package domain

import (
	"regexp"
	"strings"
)

var (
	zipPattern     = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	usDatePattern  = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

const (
	// SearchMinLength is the shortest accepted search query
	SearchMinLength = 2
	// SearchMaxResults caps the number of search hits returned
	SearchMaxResults = 50

	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// IsValidZip reports whether s is a US ZIP or ZIP+4 code
func IsValidZip(s string) bool {
	return zipPattern.MatchString(s)
}

// IsValidDateOfBirth loosely checks M/D/YYYY or YYYY-MM-DD. Calendar validity is not checked.
func IsValidDateOfBirth(s string) bool {
	return usDatePattern.MatchString(s) || isoDatePattern.MatchString(s)
}

// IsNotBlank reports whether s has content after trimming
func IsNotBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

// NormalizePage applies the listing defaults: page < 1 becomes 1,
// a missing limit becomes 10 and any limit is clamped to [1, 100].
func NormalizePage(page, limit int, limitSet bool) (int, int) {
	if page < 1 {
		page = 1
	}
	if !limitSet {
		limit = DefaultPageLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
