package config

import (
	"fmt"
	"strings"
)

// ParseArgv splits a command line into argv, honoring single and double
// quotes. It deliberately supports no shell expansion; configured commands
// run directly, not through a shell.
func ParseArgv(raw string) ([]string, error) {
	var (
		argv    []string
		current strings.Builder
		quote   rune
		inWord  bool
	)

	for _, r := range raw {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				argv = append(argv, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command %q", raw)
	}
	if inWord {
		argv = append(argv, current.String())
	}
	return argv, nil
}
