package task

import "github.com/Sumatoshi-tech/commitflow/internal/directive"

// statuses is the full task lifecycle. There is no terminal state: DONE may
// be reopened by a later directive, so every transition is legal.
var statuses = map[directive.Status]struct{}{
	directive.StatusTodo:       {},
	directive.StatusBacklog:    {},
	directive.StatusInProgress: {},
	directive.StatusReview:     {},
	directive.StatusDone:       {},
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s directive.Status) bool {
	_, ok := statuses[s]

	return ok
}

// Transition applies a status change and reports whether the state moved.
// Same-state transitions are no-ops and emit nothing.
func Transition(current, next directive.Status) (directive.Status, bool) {
	if !ValidStatus(next) || current == next {
		return current, false
	}

	return next, true
}
