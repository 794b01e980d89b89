package batch

import (
	"fmt"
	"strings"
)

// resolvedLine is one exec command after heredoc and multiline-quote
// resolution: the 1-based source line the command started on, that
// first source line (trimmed) as raw text for error messages, and its
// tokens.
type resolvedLine struct {
	LineNo int
	Raw    string
	Tokens []string
}

// resolveHeredocs walks input line by line, skipping blanks and comments,
// joining continuation lines while double quotes are unbalanced, and
// resolving at most one "<<DELIMITER ... DELIMITER" heredoc per command
// into a single token holding the body joined by newlines.
func resolveHeredocs(input string) ([]resolvedLine, error) {
	lines := strings.Split(input, "\n")
	var out []resolvedLine
	i := 0

	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		lineno := i + 1
		i++

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		accumulated := line
		for !hasBalancedQuotes(accumulated) {
			if i >= len(lines) {
				return nil, fmt.Errorf("line %d: unterminated double quote", lineno)
			}
			accumulated += "\n" + lines[i]
			i++
		}

		tokens, err := tokenizeLine(accumulated)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid quoting: %s: %w", lineno, line, err)
		}

		heredocPos := -1
		for idx, t := range tokens {
			if strings.HasPrefix(t, "<<") && len(t) > 2 {
				if heredocPos != -1 {
					return nil, fmt.Errorf("line %d: only one heredoc per command is supported", lineno)
				}
				heredocPos = idx
			}
		}

		if heredocPos != -1 {
			delimiter := tokens[heredocPos][2:]
			var body []string
			found := false
			for i < len(lines) {
				if lines[i] == delimiter {
					found = true
					i++
					break
				}
				body = append(body, lines[i])
				i++
			}
			if !found {
				return nil, fmt.Errorf("line %d: unterminated heredoc (expected closing '%s')", lineno, delimiter)
			}
			tokens[heredocPos] = strings.Join(body, "\n")
		}

		out = append(out, resolvedLine{LineNo: lineno, Raw: line, Tokens: tokens})
	}

	return out, nil
}
