package domain

import "time"

// TimerKind distinguishes the ephemeral per-user session timers. A user may
// hold at most one active timer per kind, but different kinds concurrently.
type TimerKind string

const (
	KindFocus    TimerKind = "focus"
	KindPomodoro TimerKind = "pomodoro"
	KindDND      TimerKind = "dnd"
	KindTimer    TimerKind = "timer" // ad-hoc countdown timer
)

// Bounds returns the allowed duration range for a timer kind.
func (k TimerKind) Bounds() (min, max time.Duration) {
	switch k {
	case KindPomodoro:
		return 5 * time.Minute, 60 * time.Minute
	case KindTimer:
		return time.Second, 24 * time.Hour
	default: // focus, dnd
		return 5 * time.Minute, 480 * time.Minute
	}
}

var focusTypes = map[string]bool{
	"focus": true, "deep_work": true, "study": true, "coding": true, "writing": true,
}

// ValidFocusType reports whether s is an accepted focus session type.
func ValidFocusType(s string) bool { return focusTypes[s] }

// FocusSession is a persisted record of one focus or pomodoro session.
type FocusSession struct {
	ID        string
	UserID    int64
	ChatID    int64
	Kind      string // focus type, or "pomodoro"
	StartedAt time.Time
	EndedAt   *time.Time
	Minutes   int
}

// Stats is the per-user productivity aggregate.
type Stats struct {
	UserID       int64
	ChatID       int64
	FocusMinutes int
	FocusCount   int
	Pomodoros    int
	DNDMinutes   int
	UpdatedAt    time.Time
}

// StatsDelta is an additive update applied to Stats.
type StatsDelta struct {
	FocusMinutes int
	FocusCount   int
	Pomodoros    int
	DNDMinutes   int
}

// PeriodStats is the activity summary a report is built from.
type PeriodStats struct {
	Standups     int
	FocusMinutes int
	Pomodoros    int
}
