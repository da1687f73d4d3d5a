package extract

import (
	"regexp"
	"strings"
)

var (
	newlineRunRegex = regexp.MustCompile(`\n{3,}`)
	spaceRunRegex   = regexp.MustCompile(` {3,}`)
)

// Clean normalizes whitespace in extracted text. Lines are trimmed and blank
// lines dropped, so the result never contains empty lines.
func Clean(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = newlineRunRegex.ReplaceAllString(s, "\n\n")
	s = spaceRunRegex.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\t", " ")
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
