package narration

import (
	"regexp"
	"strings"
)

var (
	emphasisPattern  = regexp.MustCompile(`\*\*|__|[*_~]|` + "`+")
	headingPattern   = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	bulletPattern    = regexp.MustCompile(`(?m)^\s*[-•]\s+`)
	whitespaceRun    = regexp.MustCompile(`[ \t]{2,}`)
	sentenceTerminal = ".!?:;"
)

// Normalize prepares narration text for synthesis. Emphasis markup and
// heading/bullet markers are stripped so the voice never reads formatting
// characters, and line breaks are collapsed to sentence breaks.
func Normalize(text string) string {
	text = headingPattern.ReplaceAllString(text, "")
	text = bulletPattern.ReplaceAllString(text, "")
	text = emphasisPattern.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if !strings.ContainsRune(sentenceTerminal, runes[len(runes)-1]) {
			line += "."
		}
		parts = append(parts, line)
	}

	joined := strings.Join(parts, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(joined, " "))
}
