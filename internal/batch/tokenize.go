// Package batch implements the exec verb: a script of CLI command lines
// read from stdin and run as a single all-or-nothing transaction.
//
// Grounded on kbtz/src/main.rs's tokenize_exec_line/resolve_heredocs/
// run_exec (see original_source), reimplemented idiomatically rather than
// translated line-for-line.
package batch

import (
	"fmt"
	"strings"
)

// tokenizeLine splits a line using double-quote-only quoting: unlike POSIX
// shell quoting, single quotes are ordinary characters (so apostrophes in
// "Here's" don't open a string). Only double quotes delimit strings, with
// \" and \\ as escapes inside them; backslashes outside quotes are literal.
func tokenizeLine(line string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inQuotes := false
	inToken := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if inQuotes {
			switch c {
			case '"':
				inQuotes = false
			case '\\':
				if i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\') {
					current.WriteRune(runes[i+1])
					i++
				} else {
					current.WriteRune(c)
				}
			default:
				current.WriteRune(c)
			}
			continue
		}

		switch {
		case c == '"':
			inQuotes = true
			inToken = true
		case isASCIISpace(c):
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(c)
			inToken = true
		}
	}

	if inQuotes {
		return nil, fmt.Errorf("unterminated double quote")
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

func isASCIISpace(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// hasBalancedQuotes reports whether every opening double quote in s has a
// matching close, honoring the same backslash-escape rule as tokenizeLine.
func hasBalancedQuotes(s string) bool {
	inQuotes := false
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if inQuotes {
			switch c {
			case '"':
				inQuotes = false
			case '\\':
				if i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\') {
					i++
				}
			}
			continue
		}
		if c == '"' {
			inQuotes = true
		}
	}
	return !inQuotes
}
