package bot

import (
	"regexp"
	"strings"
)

var newlineRuns = regexp.MustCompile(`\n+`)

// Clean post-processes raw model output into a sendable reply. Models primed
// with "Speaker: text" history tend to echo the format back, so the cleaner
// truncates at the first "Human:" continuation and strips a leading
// self-label. Returns "" when nothing usable remains; the caller substitutes
// the canned filler.
func Clean(raw, botName string) string {
	text := strings.TrimSpace(raw)

	if idx := strings.Index(text, "Human:"); idx >= 0 {
		text = text[:idx]
	}

	text = strings.TrimSpace(text)
	for _, label := range []string{botName + ":", "Assistant:"} {
		if label != ":" && strings.HasPrefix(text, label) {
			text = strings.TrimSpace(strings.TrimPrefix(text, label))
			break
		}
	}

	text = newlineRuns.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if len(text) < minReplyLen {
		return ""
	}
	return text
}
