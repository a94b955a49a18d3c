package llm

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ExtractJSON returns the first balanced {...} or [...] span in s.
// Quote-aware so braces inside string values do not break matching. An
// opener that never balances (a stray lone brace in surrounding prose)
// is skipped and scanning resumes at the next opener.
func ExtractJSON(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		if span, ok := balancedSpan(s, i); ok {
			return span, true
		}
	}
	return "", false
}

func balancedSpan(s string, start int) (string, bool) {
	open := s[start]
	close := byte('}')
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ElementAction is the canonical shape for element-interaction replies.
// Models describe the same intent in several shapes
// ({"element":{"id":...},"action":...} or {"elementId":...,"action":...});
// normalization folds them all into this triple.
type ElementAction struct {
	ElementID string
	Method    string
	Arguments []any
}

// ParseElementAction attempts a strict JSON parse of content, then a
// looser parse of the first embedded JSON span, and normalizes any
// recognized element/action object. Returns false when content holds no
// such object.
func ParseElementAction(content string) (*ElementAction, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &obj); err != nil {
		span, ok := ExtractJSON(content)
		if !ok {
			return nil, false
		}
		if err := json.Unmarshal([]byte(span), &obj); err != nil {
			return nil, false
		}
	}
	return normalizeElementAction(obj)
}

func normalizeElementAction(obj map[string]any) (*ElementAction, bool) {
	action, ok := obj["action"].(string)
	if !ok || action == "" {
		return nil, false
	}

	var rawID string
	switch el := obj["element"].(type) {
	case map[string]any:
		rawID = stringField(el, "id")
	case string:
		rawID = el
	default:
		rawID = stringField(obj, "elementId")
	}
	if rawID == "" {
		return nil, false
	}

	out := &ElementAction{
		ElementID: digitsOnly(rawID),
		Method:    action,
		Arguments: []any{},
	}

	if arg, ok := obj["argument"]; ok && arg != nil {
		out.Arguments = []any{arg}
	} else if args, ok := obj["arguments"].([]any); ok {
		out.Arguments = args
	}
	return out, true
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// digitsOnly strips decoration like "[3]" down to the bare id.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return s
	}
	return b.String()
}
