// Package directive extracts structured task-management intent from commit
// messages. The accepted language is a wire contract shared with editor
// extensions and CLIs: an anchor (`Feature<N>:` or `F<N>:`), a title, and
// zero or more `-> segment` groups.
package directive

// Status is a task lifecycle state. The vocabulary doubles as the terminal
// status segment of the commit-message grammar.
type Status string

// Task lifecycle states.
const (
	StatusTodo       Status = "TODO"
	StatusBacklog    Status = "BACKLOG"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReview     Status = "REVIEW"
	StatusDone       Status = "DONE"
)

// Priority is a backlog priority level from a `backlog-<level>` segment.
type Priority string

// Backlog priority levels.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// TaskType classifies a task from a bare type segment.
type TaskType string

// Task types.
const (
	TypeStory   TaskType = "story"
	TypeBug     TaskType = "bug"
	TypeEpic    TaskType = "epic"
	TypeTask    TaskType = "task"
	TypeSubtask TaskType = "subtask"
)

// Estimate units.
const (
	UnitHours  = 'h'
	UnitDays   = 'd'
	UnitWeeks  = 'w'
	UnitMonths = 'm'
)

// Working-time conversion factors for estimate units.
const (
	minutesPerHour = 60
	hoursPerDay    = 8
	daysPerWeek    = 5
	weeksPerMonth  = 4
)

// Estimate is a parsed `estimate:<N><h|d|w|m>` segment.
type Estimate struct {
	Value int
	Unit  byte
}

// Minutes converts the estimate to working minutes
// (8h day, 5d week, 4w month).
func (e Estimate) Minutes() int {
	switch e.Unit {
	case UnitHours:
		return e.Value * minutesPerHour
	case UnitDays:
		return e.Value * minutesPerHour * hoursPerDay
	case UnitWeeks:
		return e.Value * minutesPerHour * hoursPerDay * daysPerWeek
	case UnitMonths:
		return e.Value * minutesPerHour * hoursPerDay * daysPerWeek * weeksPerMonth
	default:
		return 0
	}
}

// Directive is the immutable result of grammar extraction from one commit
// message. Optional fields are nil when the corresponding segment is absent.
// It is never persisted standalone; the reconciler consumes it once.
type Directive struct {
	// FeatureCode is the canonical anchor token, always in `Feature<N>` form;
	// the `F<N>` shorthand aliases the same code.
	FeatureCode string

	// Title is the text between the anchor colon and the first arrow.
	Title string

	// Assignee is the raw assignee token. Resolution against known users is
	// the reconciler's concern.
	Assignee *string

	// Status is the resolved status: the terminal status segment when present,
	// otherwise the default-resolution rule (backlog => BACKLOG,
	// assignee => IN_PROGRESS, else TODO).
	Status Status

	// ExplicitStatus reports whether Status came from a terminal status segment.
	ExplicitStatus bool

	// Sprint is the sprint token: digits, "current", or "next".
	Sprint *string

	// BacklogPriority is the `backlog-<level>` segment, when present.
	BacklogPriority *Priority

	// StoryPoints is the `sp:<N>` segment, when present and integral.
	StoryPoints *int

	// Estimate is the `estimate:<N><unit>` segment, when present and well-formed.
	Estimate *Estimate

	// TaskType is the bare type segment, when present.
	TaskType *TaskType

	// Tags are all `#word` substrings anywhere in the message, in order of
	// appearance, not deduplicated.
	Tags []string
}
