package directive

import (
	"strconv"
	"strings"
)

// arrow separates the title from segments and segments from each other.
const arrow = "->"

// canonicalAnchorPrefix is the normalized feature-code prefix; the `F<N>`
// shorthand aliases the long form so both spellings address one task.
const canonicalAnchorPrefix = "Feature"

// anchorWord is the long anchor spelling, matched case-insensitively.
const anchorWord = "feature"

// Segment keyword prefixes.
const (
	prefixSprint   = "sprint"
	prefixBacklog  = "backlog-"
	prefixPoints   = "sp:"
	prefixEstimate = "estimate:"
)

// Sprint relative tokens.
const (
	sprintCurrent = "current"
	sprintNext    = "next"
)

var statusVocab = map[string]Status{
	"todo":        StatusTodo,
	"backlog":     StatusBacklog,
	"in-progress": StatusInProgress,
	"review":      StatusReview,
	"done":        StatusDone,
}

var priorityVocab = map[string]Priority{
	"low":      PriorityLow,
	"medium":   PriorityMedium,
	"high":     PriorityHigh,
	"critical": PriorityCritical,
}

var typeVocab = map[string]TaskType{
	"story":   TypeStory,
	"bug":     TypeBug,
	"epic":    TypeEpic,
	"task":    TypeTask,
	"subtask": TypeSubtask,
}

// Parse extracts a directive from a commit message. It returns nil when the
// message carries no recognizable directive: no anchor, or an anchor with an
// empty title. A nil result is a parse miss, not an error; the commit is
// still recorded, just unlinked to any task.
func Parse(message string) *Directive {
	code, bodyStart, found := findAnchor(message)
	if !found {
		return nil
	}

	title, segments := splitSegments(message[bodyStart:])
	if title == "" {
		return nil
	}

	dir := &Directive{
		FeatureCode: code,
		Title:       title,
		Tags:        extractTags(message),
	}

	classifySegments(dir, segments)
	resolveStatus(dir)

	return dir
}

// findAnchor locates the first `Feature<digits>:` or `F<digits>:` token,
// case-insensitively. It returns the canonical feature code and the offset
// just past the colon.
func findAnchor(message string) (code string, bodyStart int, found bool) {
	for i := 0; i < len(message); i++ {
		if lowerByte(message[i]) != 'f' {
			continue
		}

		digitsStart := i + 1
		if hasFoldPrefix(message[digitsStart:], anchorWord[1:]) {
			digitsStart += len(anchorWord) - 1
		}

		digitsEnd := digitsStart
		for digitsEnd < len(message) && isDigit(message[digitsEnd]) {
			digitsEnd++
		}

		if digitsEnd == digitsStart {
			continue
		}

		if digitsEnd >= len(message) || message[digitsEnd] != ':' {
			continue
		}

		return canonicalAnchorPrefix + message[digitsStart:digitsEnd], digitsEnd + 1, true
	}

	return "", 0, false
}

// splitSegments splits the post-anchor body into the title and the trimmed
// arrow-separated segments.
func splitSegments(body string) (title string, segments []string) {
	parts := strings.Split(body, arrow)

	title = strings.TrimSpace(parts[0])

	for _, part := range parts[1:] {
		segments = append(segments, strings.TrimSpace(part))
	}

	return title, segments
}

// classifySegments walks the segments left to right. Classification is
// position-independent except that a status segment is honored only in
// terminal position; a non-terminal status segment is dropped.
func classifySegments(dir *Directive, segments []string) {
	last := len(segments) - 1

	for i, seg := range segments {
		if seg == "" {
			continue
		}

		lower := strings.ToLower(seg)

		if status, ok := statusVocab[lower]; ok {
			if i == last {
				dir.Status = status
				dir.ExplicitStatus = true
			}

			continue
		}

		if classifyKeyword(dir, lower) {
			continue
		}

		if strings.HasPrefix(seg, "#") {
			// Tags are collected from the whole message separately.
			continue
		}

		if dir.Assignee == nil {
			assignee := seg
			dir.Assignee = &assignee
		}
	}
}

// classifyKeyword handles the keyword-shaped segment forms. It reports true
// when the segment was consumed, including malformed payloads that are
// dropped silently (e.g. `sp:five`).
func classifyKeyword(dir *Directive, lower string) bool {
	if rest, ok := strings.CutPrefix(lower, prefixSprint); ok && isSprintToken(rest) {
		sprint := rest
		dir.Sprint = &sprint

		return true
	}

	if rest, ok := strings.CutPrefix(lower, prefixBacklog); ok {
		if priority, valid := priorityVocab[rest]; valid {
			p := priority
			dir.BacklogPriority = &p
		}

		return true
	}

	if rest, ok := strings.CutPrefix(lower, prefixPoints); ok {
		if points, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
			dir.StoryPoints = &points
		}

		return true
	}

	if rest, ok := strings.CutPrefix(lower, prefixEstimate); ok {
		if est, valid := parseEstimate(strings.TrimSpace(rest)); valid {
			dir.Estimate = &est
		}

		return true
	}

	if taskType, ok := typeVocab[lower]; ok {
		tt := taskType
		dir.TaskType = &tt

		return true
	}

	return false
}

// isSprintToken accepts `<digits>`, `current`, or `next`.
func isSprintToken(rest string) bool {
	if rest == sprintCurrent || rest == sprintNext {
		return true
	}

	if rest == "" {
		return false
	}

	for i := 0; i < len(rest); i++ {
		if !isDigit(rest[i]) {
			return false
		}
	}

	return true
}

// parseEstimate accepts `<digits><h|d|w|m>`.
func parseEstimate(rest string) (Estimate, bool) {
	if len(rest) < 2 {
		return Estimate{}, false
	}

	unit := rest[len(rest)-1]
	if unit != UnitHours && unit != UnitDays && unit != UnitWeeks && unit != UnitMonths {
		return Estimate{}, false
	}

	value, err := strconv.Atoi(rest[:len(rest)-1])
	if err != nil || value < 0 {
		return Estimate{}, false
	}

	return Estimate{Value: value, Unit: unit}, true
}

// resolveStatus applies the default-status rule when no terminal status
// segment was found: backlog priority wins, then assignee, then TODO.
func resolveStatus(dir *Directive) {
	if dir.ExplicitStatus {
		return
	}

	switch {
	case dir.BacklogPriority != nil:
		dir.Status = StatusBacklog
	case dir.Assignee != nil:
		dir.Status = StatusInProgress
	default:
		dir.Status = StatusTodo
	}
}

// extractTags collects all `#word` substrings anywhere in the message, in
// order of appearance, without deduplication.
func extractTags(message string) []string {
	var tags []string

	for i := 0; i < len(message); i++ {
		if message[i] != '#' {
			continue
		}

		end := i + 1
		for end < len(message) && isWordByte(message[end]) {
			end++
		}

		if end > i+1 {
			tags = append(tags, message[i+1:end])
			i = end - 1
		}
	}

	return tags
}

func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}

	return b
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isWordByte(b byte) bool {
	return isDigit(b) || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// hasFoldPrefix reports whether s begins with prefix under ASCII case folding.
func hasFoldPrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}

	for i := 0; i < len(prefix); i++ {
		if lowerByte(s[i]) != lowerByte(prefix[i]) {
			return false
		}
	}

	return true
}
