package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrPastTrigger  = errors.New("trigger time is in the past")
	ErrBadFrequency = errors.New("unknown frequency")
)

// Frequency is the recurrence rule of a scheduled action.
type Frequency string

const (
	FreqNone   Frequency = ""
	FreqHourly Frequency = "hourly"
	FreqDaily  Frequency = "daily"
	FreqWeekly Frequency = "weekly"
)

// ParseFrequency validates a user-supplied frequency string.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case FreqHourly:
		return FreqHourly, nil
	case FreqDaily:
		return FreqDaily, nil
	case FreqWeekly:
		return FreqWeekly, nil
	}
	return FreqNone, fmt.Errorf("%w: %s", ErrBadFrequency, s)
}

// Interval returns the length of one recurrence step, or 0 for FreqNone.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FreqHourly:
		return time.Hour
	case FreqDaily:
		return 24 * time.Hour
	case FreqWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// Action is a persisted, time-triggered unit of work: a reminder scheduled by
// a user, delivered to a chat when TriggerAt is reached.
type Action struct {
	ID        string
	OwnerID   int64
	ChatID    int64
	Payload   string
	TriggerAt time.Time // UTC
	Recurring bool
	Frequency Frequency // non-empty iff Recurring
	CreatedAt time.Time // UTC, informational
}

// Validate checks creation-time invariants against the given reference time.
func (a *Action) Validate(now time.Time) error {
	if !a.TriggerAt.After(now) {
		return ErrPastTrigger
	}
	if a.Recurring && a.Frequency.Interval() <= 0 {
		return ErrBadFrequency
	}
	if !a.Recurring && a.Frequency != FreqNone {
		return ErrBadFrequency
	}
	return nil
}

// NextTrigger returns the trigger time following the current one. The step is
// taken from TriggerAt, not from now, so the cadence never drifts; intervals
// missed while the process was down are collapsed by advancing until the
// result is in the future. Returns the zero time for non-recurring actions.
func (a *Action) NextTrigger(now time.Time) time.Time {
	step := a.Frequency.Interval()
	if !a.Recurring || step <= 0 {
		return time.Time{}
	}
	next := a.TriggerAt.Add(step)
	for !next.After(now) {
		next = next.Add(step)
	}
	return next
}
