package producer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls a JSON object out of model output. Models wrap JSON in
// markdown fences or prose more often than not, so this tries a fenced block
// first and falls back to brace counting from the first '{'.
func ExtractJSON(text string) (map[string]any, error) {
	candidate := text

	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate = rest[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate = rest[:end]
		}
	}

	start := strings.IndexByte(candidate, '{')
	if start < 0 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(candidate); i++ {
		ch := candidate[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var out map[string]any
				if err := json.Unmarshal([]byte(candidate[start:i+1]), &out); err != nil {
					return nil, fmt.Errorf("malformed JSON in response: %w", err)
				}
				return out, nil
			}
		}
	}
	return nil, fmt.Errorf("unterminated JSON object in response")
}

// ExtractCode pulls source code out of model output: a fenced python block
// if present, otherwise the whole response trimmed.
func ExtractCode(text string) string {
	for _, fence := range []string{"```python", "```py", "```"} {
		idx := strings.Index(text, fence)
		if idx < 0 {
			continue
		}
		rest := text[idx+len(fence):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return strings.TrimSpace(text)
}

// FinalizeSource normalizes generated code: the kernel import is prepended
// and an export call appended when the model omitted them.
func FinalizeSource(code string) string {
	if !strings.Contains(code, "import cadquery") {
		code = "import cadquery as cq\n\n" + code
	}
	if !strings.Contains(code, "exporters.export") && !strings.Contains(code, "write_stl") {
		code = strings.TrimRight(code, "\n") + "\n\ncq.exporters.export(result, \"output.stl\")\n"
	}
	return code
}
