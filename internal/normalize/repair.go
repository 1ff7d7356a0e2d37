// Package normalize parses raw judge output into structured verdicts,
// tolerating the near-miss formatting real providers produce: prose
// wrappers, markdown fences, trailing commas, stray control characters,
// and invalid escape sequences.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Repair applies the bounded set of textual repairs to raw judge output
// and returns the best JSON candidate. It is a pure function composed of
// explicit, independently testable steps; it never guesses beyond them.
//
// An empty return means no object boundary was found at all.
func Repair(text string) string {
	candidate := StripFences(text)
	candidate = ExtractObject(candidate)
	if candidate == "" {
		return ""
	}
	candidate = StripControlChars(candidate)
	candidate = RemoveTrailingCommas(candidate)
	candidate = EscapeStrayBackslashes(candidate)
	return candidate
}

// StripFences unwraps a markdown code fence if one is present, preferring
// a ```json fence over a generic one. Text without fences is returned
// unchanged.
func StripFences(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx != -1 {
		start := idx + len("```json")
		if end := strings.Index(text[start:], "```"); end != -1 {
			return strings.TrimSpace(text[start : start+end])
		}
	}

	if idx := strings.Index(text, "```"); idx != -1 {
		start := idx + 3
		// Skip a language identifier line if present.
		if nl := strings.Index(text[start:], "\n"); nl != -1 {
			firstLine := strings.TrimSpace(text[start : start+nl])
			if firstLine != "" && !strings.ContainsAny(firstLine, "{}") {
				start += nl + 1
			}
		}
		if end := strings.Index(text[start:], "```"); end != -1 {
			candidate := strings.TrimSpace(text[start : start+end])
			if strings.Contains(candidate, "{") {
				return candidate
			}
		}
	}

	return text
}

// ExtractObject returns the outermost balanced JSON object in text,
// tracking string boundaries and escape sequences so braces inside
// strings don't unbalance the scan. When no closing brace balances the
// first opening one, everything from the first '{' to the last '}' is
// returned so later repair steps still get a candidate.
func ExtractObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	braceCount := 0
	inString := false
	escapeNext := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if char == '\\' {
			escapeNext = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				return text[start : i+1]
			}
		}
	}

	// Unbalanced, possibly because a stray backslash or control character
	// confused the scan. Fall back to first-'{' .. last-'}'.
	if end := strings.LastIndex(text, "}"); end > start {
		return text[start : end+1]
	}
	return ""
}

// controlChars matches control characters that are never valid inside a
// JSON document outside of escape sequences. Tabs, newlines, and carriage
// returns survive as token separators.
var controlChars = runes.Predicate(func(r rune) bool {
	return unicode.Is(unicode.Cc, r) && r != '\n' && r != '\t' && r != '\r'
})

// stripTransformer removes stray control characters and canonicalizes the
// text to NFC so downstream equality checks behave.
var stripTransformer = transform.Chain(norm.NFC, runes.Remove(controlChars))

// StripControlChars removes control characters a provider may leak into
// its output and NFC-normalizes the remainder.
func StripControlChars(text string) string {
	out, _, err := transform.String(stripTransformer, text)
	if err != nil {
		// The transformer chain cannot fail on valid UTF-8; on broken
		// input, keep the original and let JSON parsing report it.
		return text
	}
	return out
}

// RemoveTrailingCommas drops commas that directly precede a closing brace
// or bracket, respecting string boundaries.
func RemoveTrailingCommas(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escapeNext := false

	for i := 0; i < len(text); i++ {
		char := text[i]

		if inString {
			b.WriteByte(char)
			if escapeNext {
				escapeNext = false
			} else if char == '\\' {
				escapeNext = true
			} else if char == '"' {
				inString = false
			}
			continue
		}

		if char == '"' {
			inString = true
			b.WriteByte(char)
			continue
		}

		if char == ',' {
			// Look ahead past whitespace for a closing delimiter.
			j := i + 1
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
		}

		b.WriteByte(char)
	}

	return b.String()
}

// validEscapes lists the characters that may legally follow a backslash
// inside a JSON string.
const validEscapes = `"\/bfnrtu`

// EscapeStrayBackslashes doubles backslashes that do not begin a valid
// JSON escape sequence, e.g. Windows paths a judge pasted verbatim.
func EscapeStrayBackslashes(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false

	for i := 0; i < len(text); i++ {
		char := text[i]

		if char == '"' {
			inString = !inString
			b.WriteByte(char)
			continue
		}

		if inString && char == '\\' {
			if i+1 < len(text) && strings.IndexByte(validEscapes, text[i+1]) != -1 {
				// Valid escape: copy both bytes and keep string state.
				b.WriteByte(char)
				i++
				b.WriteByte(text[i])
				continue
			}
			b.WriteString(`\\`)
			continue
		}

		b.WriteByte(char)
	}

	return b.String()
}
