package grading

import "strings"

// textMatch compares trimmed strings, folding case unless caseSensitive.
func textMatch(got, want string, caseSensitive bool) bool {
	got, want = strings.TrimSpace(got), strings.TrimSpace(want)
	if caseSensitive {
		return got == want
	}
	return strings.EqualFold(got, want)
}

// equalStringSets reports whether a and b hold the same elements with the
// same multiplicity. Order does not matter.
func equalStringSets(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, v := range seen {
		if v != 0 {
			return false
		}
	}
	return true
}
