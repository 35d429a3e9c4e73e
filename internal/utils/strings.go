package utils

import "strings"

// ParseCSV splits a comma-separated string into trimmed non-empty values,
// returning nil when nothing usable remains. Used for list-valued
// environment variables (security symbols, crisis dates).
func ParseCSV(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, v := range parts {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
