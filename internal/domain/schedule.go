package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a bitmask of weekdays, bit i = time.Weekday(i).
type WeekdaySet uint8

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekdays parses a comma-separated day list like "mon,tue,fri".
// "daily" and "weekdays" are accepted as shorthands.
func ParseWeekdays(s string) (WeekdaySet, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "daily", "everyday":
		return WeekdaySet(0x7f), nil
	case "weekdays":
		var set WeekdaySet
		for d := time.Monday; d <= time.Friday; d++ {
			set |= 1 << d
		}
		return set, nil
	}
	var set WeekdaySet
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if len(part) > 3 {
			part = part[:3]
		}
		d, ok := weekdayNames[part]
		if !ok {
			return 0, fmt.Errorf("unknown weekday: %q", part)
		}
		set |= 1 << d
	}
	if set == 0 {
		return 0, errors.New("empty weekday list")
	}
	return set, nil
}

// Has reports whether d is in the set.
func (w WeekdaySet) Has(d time.Weekday) bool { return w&(1<<d) != 0 }

func (w WeekdaySet) String() string {
	order := []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}
	var out []string
	for _, name := range order {
		if w.Has(weekdayNames[name]) {
			out = append(out, name)
		}
	}
	return strings.Join(out, ",")
}

// ReportSchedule is a per-chat subscription to a recurring activity report.
type ReportSchedule struct {
	ChatID    int64
	Frequency Frequency // FreqDaily or FreqWeekly
	LastSent  *time.Time
	Active    bool
	CreatedAt time.Time
}

// Due reports whether a report should be sent at now. A schedule with no
// prior send is due immediately.
func (s *ReportSchedule) Due(now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.LastSent == nil {
		return true
	}
	return now.Sub(*s.LastSent) >= s.Frequency.Interval()
}

// StandupSchedule is a per-chat standup prompt configuration. The prompt
// fires once per local day, on configured weekdays, at or after PromptMin.
type StandupSchedule struct {
	ChatID    int64
	PromptMin int // minutes since local midnight
	Days      WeekdaySet
	TZ        string // IANA location name
	LastDay   string // local day (2006-01-02) of the last prompt
	Active    bool
	CreatedAt time.Time
}

// Due reports whether the prompt should fire at now and, if so, the local
// day string to record so it does not fire again the same day.
func (s *StandupSchedule) Due(now time.Time) (string, bool) {
	if !s.Active {
		return "", false
	}
	loc, err := time.LoadLocation(s.TZ)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	day := local.Format("2006-01-02")
	if day == s.LastDay {
		return "", false
	}
	if !s.Days.Has(local.Weekday()) {
		return "", false
	}
	if local.Hour()*60+local.Minute() < s.PromptMin {
		return "", false
	}
	return day, true
}

// StandupResponse is one user's standup entry for one day.
type StandupResponse struct {
	ChatID    int64
	UserID    int64
	Date      string // 2006-01-02
	Yesterday string
	Today     string
	Blockers  string
	CreatedAt time.Time
}
