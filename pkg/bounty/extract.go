package bounty

import (
	"iter"
	"regexp"
	"strconv"
)

// closingVerbs is ordered; the order decides which reference is seen first.
var closingVerbs = []string{
	"close", "closes", "closed",
	"fix", "fixes", "fixed",
	"resolve", "resolves", "resolved",
}

type referencePattern struct {
	verb string
	re   *regexp.Regexp
}

var referencePatterns = compileReferencePatterns(closingVerbs)

func compileReferencePatterns(verbs []string) []referencePattern {
	patterns := make([]referencePattern, 0, len(verbs))
	for _, verb := range verbs {
		patterns = append(patterns, referencePattern{
			verb: verb,
			re:   regexp.MustCompile(`(?i)\b` + verb + `[:,.;-]?\s*#(\d+)`),
		})
	}
	return patterns
}

// IssueReferences yields the issue numbers referenced by closing keywords,
// body matches first and then title matches, each in pattern order.
// Captures that do not fit a positive int32 are skipped.
func IssueReferences(body, title string) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, text := range [...]string{body, title} {
			if text == "" {
				continue
			}
			for _, pattern := range referencePatterns {
				for _, match := range pattern.re.FindAllStringSubmatch(text, -1) {
					number, ok := parseIssueNumber(match[1])
					if !ok {
						continue
					}
					if !yield(number) {
						return
					}
				}
			}
		}
	}
}

// FirstIssueNumber returns the first issue reference, if any.
func FirstIssueNumber(body, title string) (int, bool) {
	for number := range IssueReferences(body, title) {
		return number, true
	}
	return 0, false
}

func parseIssueNumber(raw string) (int, bool) {
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || value <= 0 {
		return 0, false
	}
	return int(value), true
}
