package util

import (
	"regexp"
	"strings"
)

var (
	reSpaces        = regexp.MustCompile(`\s+`)
	reReplyPrefixes = regexp.MustCompile(`(?i)^\s*((re|fw|fwd|aw|回复|转发)\s*[:：]\s*)+`)
)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeSubject folds reply/forward prefixes and whitespace so replies to
// one RFQ mail end up in the same comparison group.
func NormalizeSubject(subject string) string {
	s := reReplyPrefixes.ReplaceAllString(subject, "")
	return strings.ToLower(NormalizeSpaces(s))
}

func SanitizeFilename(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", "\"", "_")
	out := repl.Replace(strings.TrimSpace(input))
	if out == "" {
		out = "untitled"
	}
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
