// Package jsonx recovers JSON objects from LLM output that may be wrapped in
// prose or markdown fences, and coerces loosely-typed fields with defaults.
package jsonx

import (
	"encoding/json"
	"strings"
)

// ExtractObject makes a best-effort attempt to recover a JSON object from
// model output. Attempts, in order: parse the whole trimmed text, parse the
// content of the first ```json fence (or the first fence of any kind), then
// brace-match from the first '{'. Returns an empty map when nothing parses.
// It never returns an error and does not repair malformed JSON.
func ExtractObject(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]any{}
	}

	if m, ok := tryParse(text); ok {
		return m
	}

	if fenced, ok := firstFence(text); ok {
		if m, ok := tryParse(fenced); ok {
			return m
		}
		text = fenced
	}

	if inner, ok := braceMatch(text); ok {
		if m, ok := tryParse(inner); ok {
			return m
		}
	}

	return map[string]any{}
}

func tryParse(text string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, false
	}
	return m, true
}

// firstFence returns the content of the first ```json fence pair, or of the
// first plain ``` fence pair when no json-tagged fence exists.
func firstFence(text string) (string, bool) {
	marker := "```json"
	idx := strings.Index(text, marker)
	if idx < 0 {
		marker = "```"
		idx = strings.Index(text, marker)
	}
	if idx < 0 {
		return "", false
	}
	rest := text[idx+len(marker):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}

// braceMatch walks from the first '{' tracking nesting depth and returns the
// substring up to the matching '}'. String literals and escapes are honored
// so braces inside values do not confuse the depth count.
func braceMatch(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' && inString {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// Str returns m[key] as a string, or "" when absent or mistyped.
func Str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// FirstStr returns the first non-blank string under any of the given keys.
// Model families disagree on key names, so callers pass alternates.
func FirstStr(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(Str(m, key)); v != "" {
			return v
		}
	}
	return ""
}

// Num returns m[key] as a float64, or 0 when absent or mistyped.
func Num(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// StrList returns m[key] as a []string, skipping non-string elements.
// Absent or mistyped values yield an empty slice.
func StrList(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
