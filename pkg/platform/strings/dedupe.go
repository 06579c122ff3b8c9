// Package strings provides list normalization for configuration values.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops empties and exact duplicates,
// keeping first-seen order.
func DedupeAndTrim(values []string) []string {
	return dedupeBy(values, func(s string) string { return s })
}

// DedupeFold is DedupeAndTrim with case-insensitive matching. The first
// spelling of each value wins, so "en-US,en-us" yields "en-US".
func DedupeFold(values []string) []string {
	return dedupeBy(values, strings.ToLower)
}

func dedupeBy(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := key(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
