package domain

import (
	"testing"
	"time"
)

// All parsing is anchored to a fixed reference time: Tue 2026-03-10 14:00 UTC.
var parseNow = time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)

func TestParseWhen_RelativeOffsets(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"in 5 minutes", parseNow.Add(5 * time.Minute)},
		{"in 1 minute", parseNow.Add(time.Minute)},
		{"in 30 min", parseNow.Add(30 * time.Minute)},
		{"in 2 hours", parseNow.Add(2 * time.Hour)},
		{"in 1 hr", parseNow.Add(time.Hour)},
		{"in 3 days", parseNow.Add(3 * 24 * time.Hour)},
		{"in 1 week", parseNow.Add(7 * 24 * time.Hour)},
	}
	for _, c := range cases {
		got, ok := ParseWhen(c.in, parseNow)
		if !ok {
			t.Fatalf("%q: not parsed", c.in)
		}
		if !got.Equal(c.want) {
			t.Fatalf("%q: want %v, got %v", c.in, c.want, got)
		}
	}
}

func TestParseWhen_TomorrowDefaultsToNine(t *testing.T) {
	got, ok := ParseWhen("tomorrow", parseNow)
	if !ok {
		t.Fatal("not parsed")
	}
	want := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestParseWhen_TomorrowWithTime(t *testing.T) {
	got, ok := ParseWhen("tomorrow at 3pm", parseNow)
	if !ok {
		t.Fatal("not parsed")
	}
	want := time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestParseWhen_TodayFutureTime(t *testing.T) {
	got, ok := ParseWhen("today at 18:30", parseNow)
	if !ok {
		t.Fatal("not parsed")
	}
	want := time.Date(2026, time.March, 10, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestParseWhen_TodayPastTimeRejected(t *testing.T) {
	if _, ok := ParseWhen("today at 9am", parseNow); ok {
		t.Fatal("past time on the named day must be rejected, not rolled over")
	}
}

func TestParseWhen_BareTimeRollsToTomorrow(t *testing.T) {
	// 09:00 already passed at the 14:00 reference, so the next 09:00 is tomorrow.
	got, ok := ParseWhen("9:00", parseNow)
	if !ok {
		t.Fatal("not parsed")
	}
	want := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}

	got, ok = ParseWhen("18:45", parseNow)
	if !ok {
		t.Fatal("not parsed")
	}
	want = time.Date(2026, time.March, 10, 18, 45, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestParseWhen_TwelveHourEdges(t *testing.T) {
	got, ok := ParseWhen("12am", parseNow)
	if !ok {
		t.Fatal("12am not parsed")
	}
	if got.Hour() != 0 {
		t.Fatalf("12am: want hour 0, got %d", got.Hour())
	}

	got, ok = ParseWhen("12pm", parseNow)
	if !ok {
		t.Fatal("12pm not parsed")
	}
	if got.Hour() != 12 {
		t.Fatalf("12pm: want hour 12, got %d", got.Hour())
	}
}

func TestParseWhen_Unparseable(t *testing.T) {
	for _, in := range []string{"", "whenever", "in five minutes", "25:00", "13pm", "today"} {
		if _, ok := ParseWhen(in, parseNow); ok {
			t.Fatalf("%q: expected parse failure", in)
		}
	}
}

func TestParseTimerDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"90s", 90 * time.Second},
		{"25m", 25 * time.Minute},
		{"2h", 2 * time.Hour},
		{" 10M ", 10 * time.Minute},
	}
	for _, c := range cases {
		got, err := ParseTimerDuration(c.in)
		if err != nil {
			t.Fatalf("%q: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("%q: want %v, got %v", c.in, c.want, got)
		}
	}

	for _, in := range []string{"", "abc", "10", "10x", "0s"} {
		if _, err := ParseTimerDuration(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("09:30")
	if err != nil {
		t.Fatal(err)
	}
	if got != 9*60+30 {
		t.Fatalf("want %d, got %d", 9*60+30, got)
	}

	for _, in := range []string{"930", "24:00", "10:60", "aa:bb"} {
		if _, err := ParseClock(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	if got := FormatMinutes(9*60 + 5); got != "09:05" {
		t.Fatalf("want 09:05, got %s", got)
	}
}
