package tour

import "strings"

var (
	startPhrases = []string{
		"start the demo",
		"start demo",
		"run the demo",
		"give me the tour",
		"start the tour",
	}
	stopPhrases = []string{
		"stop the demo",
		"stop demo",
		"end the demo",
		"stop the tour",
	}
)

// MatchTrigger recognizes spoken or typed control phrases. It returns
// ("start"|"stop", true) on a match, or ("", false) otherwise.
func MatchTrigger(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.TrimRight(normalized, ".!?")

	for _, phrase := range startPhrases {
		if normalized == phrase {
			return "start", true
		}
	}
	for _, phrase := range stopPhrases {
		if normalized == phrase {
			return "stop", true
		}
	}
	return "", false
}

// HandlePhrase applies a trigger phrase to the runner, reporting whether
// the text was consumed as a control phrase. Start on a running tour obeys
// the toggle contract and stops it.
func (r *Runner) HandlePhrase(text string) bool {
	verb, ok := MatchTrigger(text)
	if !ok {
		return false
	}

	switch verb {
	case "start":
		r.Start()
	case "stop":
		r.Stop()
	}
	return true
}
