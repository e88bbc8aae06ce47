// Package syntax statically checks candidate source text before execution.
//
// The validator never executes the candidate. Its failures are always
// recoverable: a Retry result routes the candidate to the self-healer, it is
// never fatal on first occurrence.
package syntax

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cadamx/cadforge/coreengine/agents"
)

// Constructs that must appear for the script to produce an artifact.
var outputConstructs = []string{
	"exporters.export",
	"write_stl",
	"exportStl",
}

// Statically-obvious hazard: a literal division by zero.
var divByZero = regexp.MustCompile(`/\s*0(?:\.0+)?\s*(?:$|[)\s,#])`)

// Validate performs static checks on candidate source text.
func Validate(source string) agents.Result {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return agents.NewRetry("SyntaxError: candidate source is empty")
	}

	if !strings.Contains(source, "import cadquery") {
		return agents.NewRetry("SyntaxError: missing cadquery import")
	}

	if err := checkBalanced(source); err != nil {
		return agents.NewRetry(fmt.Sprintf("SyntaxError: %v", err))
	}

	hasOutput := false
	for _, c := range outputConstructs {
		if strings.Contains(source, c) {
			hasOutput = true
			break
		}
	}
	if !hasOutput {
		return agents.NewRetry("SyntaxError: no output-producing construct (expected an exporters.export call)")
	}

	if loc := findOutsideStrings(source, divByZero); loc != "" {
		return agents.NewRetry(fmt.Sprintf("SyntaxError: literal division by zero near %q", loc))
	}

	if strings.Contains(source, "\t") && strings.Contains(source, "    ") {
		return agents.NewRetry("taberror: inconsistent use of tabs and spaces in indentation")
	}

	return agents.NewSuccess("")
}

// checkBalanced verifies bracket pairing and string termination, skipping
// bracket characters inside string literals and comments.
func checkBalanced(source string) error {
	var stack []byte
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}

	inString := byte(0)
	inComment := false
	escaped := false

	for i := 0; i < len(source); i++ {
		ch := source[i]

		if inComment {
			if ch == '\n' {
				inComment = false
			}
			continue
		}
		if inString != 0 {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case inString:
				inString = 0
			case '\n':
				return fmt.Errorf("unterminated string literal")
			}
			continue
		}

		switch ch {
		case '#':
			inComment = true
		case '\'', '"':
			// Triple-quoted strings collapse to an empty pair plus one
			// opener; treat the run as a single delimiter.
			if i+2 < len(source) && source[i+1] == ch && source[i+2] == ch {
				end := strings.Index(source[i+3:], strings.Repeat(string(ch), 3))
				if end < 0 {
					return fmt.Errorf("unterminated triple-quoted string")
				}
				i += 3 + end + 2
				continue
			}
			inString = ch
		case '(', '[', '{':
			stack = append(stack, ch)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[ch] {
				return fmt.Errorf("unbalanced %q", string(ch))
			}
			stack = stack[:len(stack)-1]
		}
	}

	if inString != 0 {
		return fmt.Errorf("unterminated string literal")
	}
	if len(stack) > 0 {
		return fmt.Errorf("unbalanced %q", string(stack[len(stack)-1]))
	}
	return nil
}

// findOutsideStrings returns the first match of re that does not sit inside
// a string literal or comment, or "" if none.
func findOutsideStrings(source string, re *regexp.Regexp) string {
	for _, line := range strings.Split(source, "\n") {
		code := line
		if idx := strings.IndexByte(code, '#'); idx >= 0 {
			code = code[:idx]
		}
		if strings.ContainsAny(code, `'"`) {
			continue
		}
		if m := re.FindString(code); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}
