package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyInput  = errors.New("empty input")
	ErrBadDuration = errors.New("invalid duration")
)

var (
	reOffset = regexp.MustCompile(`^in\s+(\d+)\s*(minute|min|hour|hr|day|week)s?$`)
	reClock  = regexp.MustCompile(`(\d{1,2}):?(\d{2})?\s*(am|pm)?`)
	reBare   = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
	reTimer  = regexp.MustCompile(`^(\d+)\s*([smh])$`)
)

// ParseWhen resolves a free-form time expression against now. The result is
// always in UTC. Recognized forms, tried in order:
//
//	"in N minutes|hours|days|weeks"  → now + offset
//	"tomorrow [time]"                → next day at the time (default 09:00)
//	"today <time>"                   → same day; rejected if already passed
//	"14:30", "3pm", "9 am"           → next occurrence, rolling to tomorrow
//
// The second return is false when the input cannot be parsed; callers should
// ask the user to rephrase rather than treat this as an error.
func ParseWhen(s string, now time.Time) (time.Time, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}
	now = now.UTC()

	if m := reOffset.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		var unit time.Duration
		switch m[2] {
		case "minute", "min":
			unit = time.Minute
		case "hour", "hr":
			unit = time.Hour
		case "day":
			unit = 24 * time.Hour
		case "week":
			unit = 7 * 24 * time.Hour
		}
		return now.Add(time.Duration(n) * unit), true
	}

	if strings.Contains(s, "tomorrow") {
		h, min, found := findClock(strings.Replace(s, "tomorrow", "", 1))
		if !found {
			h, min = 9, 0
		}
		base := now.Add(24 * time.Hour)
		return time.Date(base.Year(), base.Month(), base.Day(), h, min, 0, 0, time.UTC), true
	}

	if strings.Contains(s, "today") {
		h, min, found := findClock(strings.Replace(s, "today", "", 1))
		if !found {
			return time.Time{}, false
		}
		target := time.Date(now.Year(), now.Month(), now.Day(), h, min, 0, 0, time.UTC)
		// "today" names the current day explicitly; a time that has already
		// passed is rejected instead of rolling over.
		if target.Before(now) {
			return time.Time{}, false
		}
		return target, true
	}

	if m := reBare.FindStringSubmatch(s); m != nil {
		h, min, ok := clockFields(m[1], m[2], m[3])
		if !ok {
			return time.Time{}, false
		}
		target := time.Date(now.Year(), now.Month(), now.Day(), h, min, 0, 0, time.UTC)
		if target.Before(now) {
			target = target.Add(24 * time.Hour)
		}
		return target, true
	}

	return time.Time{}, false
}

// findClock locates the first clock-like token ("9am", "14:30") in s.
func findClock(s string) (hour, min int, ok bool) {
	m := reClock.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	return clockFields(m[1], m[2], m[3])
}

// clockFields converts regex captures into a 24-hour clock reading.
// 12-hour inputs follow the usual convention: 12am → 00, 12pm → 12.
func clockFields(hs, ms, period string) (hour, min int, ok bool) {
	hour, _ = strconv.Atoi(hs)
	if ms != "" {
		min, _ = strconv.Atoi(ms)
	}
	switch period {
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	default:
		if hour > 23 {
			return 0, 0, false
		}
	}
	if min > 59 {
		return 0, 0, false
	}
	return hour, min, true
}

// ParseTimerDuration parses ad-hoc timer durations like "90s", "25m", "2h".
func ParseTimerDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, ErrEmptyInput
	}
	m := reTimer.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %s", ErrBadDuration, s)
	}
	n, _ := strconv.Atoi(m[1])
	if n <= 0 {
		return 0, fmt.Errorf("%w: must be positive", ErrBadDuration)
	}
	switch m[2] {
	case "s":
		return time.Duration(n) * time.Second, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	default:
		return time.Duration(n) * time.Hour, nil
	}
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errors.New("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errors.New("invalid minute")
	}
	return h*60 + m, nil
}

// FormatMinutes returns HH:MM for minutes since midnight.
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
