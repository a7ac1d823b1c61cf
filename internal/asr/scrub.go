package asr

import (
	"fmt"
	"regexp"
	"strings"
)

// Whisper models emit boilerplate phrases on silence or noise. These ship as
// the baseline scrub list; config patterns are appended to it.
var defaultHallucinations = []string{
	`(?i)υπότιτλοι\s+authorwave`,
	`(?i)thanks?\s+for\s+watching[.!]?`,
	`(?i)please\s+subscribe[.!]?`,
	`(?i)^\s*\[music\]\s*$`,
	`(?i)^\s*\[\s*blank_audio\s*\]\s*$`,
}

// Scrubber removes known hallucinated phrases from recognized text.
type Scrubber struct {
	patterns []*regexp.Regexp
}

// NewScrubber compiles the baseline list plus any extra patterns.
func NewScrubber(extra []string) (*Scrubber, error) {
	raw := make([]string, 0, len(defaultHallucinations)+len(extra))
	raw = append(raw, defaultHallucinations...)
	raw = append(raw, extra...)

	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return &Scrubber{patterns: patterns}, nil
}

// Clean strips hallucinated phrases and collapses the leftover whitespace.
func (s *Scrubber) Clean(text string) string {
	for _, re := range s.patterns {
		text = re.ReplaceAllString(text, " ")
	}
	return strings.Join(strings.Fields(text), " ")
}
