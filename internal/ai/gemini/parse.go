package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON strips markdown code fences the model often wraps its JSON in.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// coerceStrings flattens a response list into plain strings. Models sometimes
// return objects where a string was asked for; the first string value of such
// an object is used.
func coerceStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil
		}
		if _, isMap := v.(map[string]any); isMap {
			return nil
		}
		if s := coerceString(v); s != "" {
			return []string{s}
		}
		return nil
	}

	var out []string
	for _, item := range items {
		switch val := item.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			for _, inner := range val {
				if s := coerceString(inner); s != "" {
					out = append(out, s)
					break
				}
			}
		default:
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
