package ai

import (
	"encoding/json"
	"strings"
)

// stripFences removes markdown code fences from a string that may contain
// JSON wrapped in ```json ... ``` or ``` ... ``` blocks.
func stripFences(s string) string {
	s = strings.TrimSpace(s)

	// Try ```json ... ``` first.
	if after, found := strings.CutPrefix(s, "```json"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	// Try plain ``` ... ```.
	if after, found := strings.CutPrefix(s, "```"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	return s
}

// ExtractJSONObject returns the first balanced {...} group in s that is
// valid JSON, after stripping code fences. Braces inside JSON strings are
// ignored, and brace groups in surrounding prose are skipped. It reports
// false when no complete object is present.
func ExtractJSONObject(s string) (string, bool) {
	s = stripFences(s)

	for from := 0; from < len(s); {
		i := strings.IndexByte(s[from:], '{')
		if i < 0 {
			break
		}
		start := from + i
		if end, ok := balancedEnd(s, start); ok && json.Valid([]byte(s[start:end])) {
			return s[start:end], true
		}
		from = start + 1
	}
	return "", false
}

// balancedEnd returns the index just past the brace that closes the one at
// start.
func balancedEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
