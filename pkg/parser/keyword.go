package parser

import "strings"

// commentPrefixes are skipped when looking for the first keyword.
var commentPrefixes = []string{"%%", "'", "//"}

// LeadingKeyword returns the lower-cased first token of the first line that
// is neither blank nor a comment.
func LeadingKeyword(source string) string {
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || hasAnyPrefix(line, commentPrefixes) {
			continue
		}
		fields := strings.Fields(line)
		kw := strings.ToLower(fields[0])
		// "pie title Pets" and "graph TD;" keep only the keyword.
		return strings.TrimRight(kw, ":;")
	}
	return ""
}

// startsWithMarker reports whether the leading keyword of s is the first
// word of one of markers. Markers elsewhere in s do not count.
func startsWithMarker(s string, markers []string) bool {
	kw := LeadingKeyword(s)
	if kw == "" {
		return false
	}
	for _, m := range markers {
		if f := strings.Fields(m); len(f) > 0 && strings.EqualFold(strings.TrimRight(f[0], ":;"), kw) {
			return true
		}
	}
	return false
}

// sentinelIndex returns the byte offset of the first start sentinel that is
// the first non-space token on its line, ignoring ASCII case, or -1.
func sentinelIndex(text, start string) int {
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if hasPrefixFold(trimmed, start) {
			return offset + len(line) - len(trimmed)
		}
		offset += len(line)
	}
	return -1
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
