package meta

import "strings"

// Wildcard is the pattern that matches anything.
const Wildcard = "*"

// MatchPattern matches a string against a pattern with wildcards.
// Supported forms: exact, "*", "prefix*", "*suffix", and "a*b".
// An empty pattern is treated as "*" so unset pattern slots stay open.
func MatchPattern(s, pattern string) bool {
	// Exact match
	if pattern == s {
		return true
	}

	// Wildcard match
	if pattern == Wildcard || pattern == "" {
		return true
	}

	// Prefix match (pattern ends with *)
	if strings.HasSuffix(pattern, Wildcard) && !strings.HasPrefix(pattern, Wildcard) {
		prefix := strings.TrimSuffix(pattern, Wildcard)
		if !strings.Contains(prefix, Wildcard) {
			return strings.HasPrefix(s, prefix)
		}
	}

	// Suffix match (pattern starts with *)
	if strings.HasPrefix(pattern, Wildcard) && !strings.HasSuffix(pattern, Wildcard) {
		suffix := strings.TrimPrefix(pattern, Wildcard)
		if !strings.Contains(suffix, Wildcard) {
			return strings.HasSuffix(s, suffix)
		}
	}

	// Contains match (pattern has * in the middle)
	if strings.Contains(pattern, Wildcard) {
		parts := strings.Split(pattern, Wildcard)
		if len(parts) == 2 {
			return strings.HasPrefix(s, parts[0]) && strings.HasSuffix(s, parts[1])
		}
	}

	return false
}
