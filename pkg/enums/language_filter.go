package enums

import (
	"fmt"
	"strings"
)

// LanguageFilter narrows the language catalog.
type LanguageFilter string

const (
	LanguageFilterAll     LanguageFilter = "all"
	LanguageFilterPremium LanguageFilter = "premium"
	LanguageFilterFree    LanguageFilter = "free"
)

var validLanguageFilters = []LanguageFilter{
	LanguageFilterAll,
	LanguageFilterPremium,
	LanguageFilterFree,
}

func (f LanguageFilter) String() string {
	return string(f)
}

func (f LanguageFilter) IsValid() bool {
	for _, candidate := range validLanguageFilters {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseLanguageFilter converts raw input into a LanguageFilter. Empty input
// means all.
func ParseLanguageFilter(value string) (LanguageFilter, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return LanguageFilterAll, nil
	}
	for _, candidate := range validLanguageFilters {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid language filter %q", value)
}
