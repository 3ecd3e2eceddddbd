package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mkarev/teampulse/internal/domain"
)

type fakeStats struct {
	mu       sync.Mutex
	inserted []domain.FocusSession
	closed   []string
	deltas   []domain.StatsDelta
}

func (f *fakeStats) InsertFocusSession(_ context.Context, s *domain.FocusSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, *s)
	return nil
}

func (f *fakeStats) CloseFocusSession(_ context.Context, id string, _ time.Time, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return nil
}

func (f *fakeStats) BumpStats(_ context.Context, _, _ int64, d domain.StatsDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deltas = append(f.deltas, d)
	return nil
}

func newTestTimers(stats StatsRecorder, sender Sender) *SessionTimers {
	st := NewSessionTimers(stats, zap.NewNop(), sender)
	st.now = func() time.Time { return baseNow }
	return st
}

func TestSessionStart_RejectsOutOfBounds(t *testing.T) {
	st := newTestTimers(&fakeStats{}, &fakeSender{})

	cases := []struct {
		kind domain.TimerKind
		d    time.Duration
	}{
		{domain.KindFocus, 4 * time.Minute},
		{domain.KindFocus, 481 * time.Minute},
		{domain.KindPomodoro, 61 * time.Minute},
		{domain.KindDND, time.Minute},
		{domain.KindTimer, 25 * time.Hour},
	}
	for _, c := range cases {
		_, err := st.Start(context.Background(), 7, 42, c.kind, c.d, "")
		if !errors.Is(err, ErrDurationRange) {
			t.Fatalf("%s %v: want ErrDurationRange, got %v", c.kind, c.d, err)
		}
	}
}

func TestSessionStart_OnePerKind(t *testing.T) {
	stats := &fakeStats{}
	st := newTestTimers(stats, &fakeSender{})

	s, err := st.Start(context.Background(), 7, 42, domain.KindFocus, 25*time.Minute, "coding")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Stop(7, domain.KindFocus)

	if _, err := st.Start(context.Background(), 7, 42, domain.KindFocus, 30*time.Minute, "study"); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("want ErrSessionActive, got %v", err)
	}

	// A different kind for the same user is fine, as is the same kind for
	// another user.
	if _, err := st.Start(context.Background(), 7, 42, domain.KindDND, 30*time.Minute, ""); err != nil {
		t.Fatalf("second kind: %v", err)
	}
	defer st.Stop(7, domain.KindDND)
	if _, err := st.Start(context.Background(), 8, 42, domain.KindFocus, 30*time.Minute, "writing"); err != nil {
		t.Fatalf("other user: %v", err)
	}
	defer st.Stop(8, domain.KindFocus)

	if len(stats.inserted) != 2 {
		t.Fatalf("want 2 focus rows inserted, got %d", len(stats.inserted))
	}
	if stats.inserted[0].ID != s.ID || stats.inserted[0].Kind != "coding" {
		t.Fatalf("wrong row: %+v", stats.inserted[0])
	}
}

func TestSessionStop_SuppressesCompletion(t *testing.T) {
	stats := &fakeStats{}
	sender := &fakeSender{}
	st := newTestTimers(stats, sender)

	s, err := st.Start(context.Background(), 7, 42, domain.KindFocus, 25*time.Minute, "coding")
	if err != nil {
		t.Fatal(err)
	}

	got, err := st.Stop(7, domain.KindFocus)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != s.ID {
		t.Fatalf("want session %s, got %s", s.ID, got.ID)
	}

	// Even if the timer callback raced past Stop, the membership check
	// makes it a no-op.
	st.complete(sessionKey{userID: 7, kind: domain.KindFocus}, s.ID)

	if len(sender.messages()) != 0 {
		t.Fatal("stopped session must not announce completion")
	}
	if len(stats.closed) != 0 || len(stats.deltas) != 0 {
		t.Fatal("stopped session must not record completion stats")
	}
	if _, err := st.Stop(7, domain.KindFocus); !errors.Is(err, ErrNoSession) {
		t.Fatalf("want ErrNoSession, got %v", err)
	}
}

func TestSessionComplete_RecordsAndAnnounces(t *testing.T) {
	stats := &fakeStats{}
	sender := &fakeSender{}
	st := newTestTimers(stats, sender)

	s, err := st.Start(context.Background(), 7, 42, domain.KindPomodoro, 25*time.Minute, "")
	if err != nil {
		t.Fatal(err)
	}
	s.timer.Stop() // fire manually instead of waiting 25 minutes
	st.complete(sessionKey{userID: 7, kind: domain.KindPomodoro}, s.ID)

	if len(stats.closed) != 1 || stats.closed[0] != s.ID {
		t.Fatalf("pomodoro row not closed: %v", stats.closed)
	}
	if len(stats.deltas) != 1 || stats.deltas[0].Pomodoros != 1 {
		t.Fatalf("wrong stats delta: %+v", stats.deltas)
	}
	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("want 1 announcement, got %d", len(msgs))
	}
	if msgs[0] != "🍅 Pomodoro complete! Time for a break." {
		t.Fatalf("unexpected text: %s", msgs[0])
	}
	if _, ok := st.Active(7, domain.KindPomodoro); ok {
		t.Fatal("completed session must leave the active map")
	}
}

func TestSessionComplete_DNDBumpsMinutesOnly(t *testing.T) {
	stats := &fakeStats{}
	st := newTestTimers(stats, &fakeSender{})

	s, err := st.Start(context.Background(), 7, 42, domain.KindDND, 90*time.Minute, "deadline")
	if err != nil {
		t.Fatal(err)
	}
	s.timer.Stop()
	st.complete(sessionKey{userID: 7, kind: domain.KindDND}, s.ID)

	if len(stats.inserted) != 0 {
		t.Fatal("dnd must not create a focus row")
	}
	if len(stats.deltas) != 1 || stats.deltas[0].DNDMinutes != 90 {
		t.Fatalf("wrong delta: %+v", stats.deltas)
	}
}

func TestSessionTimer_FiresAfterDuration(t *testing.T) {
	sender := &fakeSender{}
	st := newTestTimers(&fakeStats{}, sender)

	if _, err := st.Start(context.Background(), 7, 42, domain.KindTimer, time.Second, "tea is ready"); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(sender.messages()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	msgs := sender.messages()
	if len(msgs) != 1 || msgs[0] != "⏰ tea is ready" {
		t.Fatalf("timer announcement missing or wrong: %v", msgs)
	}
	if _, ok := st.Active(7, domain.KindTimer); ok {
		t.Fatal("expired timer must leave the active map")
	}
}

func TestSessionActive(t *testing.T) {
	st := newTestTimers(&fakeStats{}, &fakeSender{})

	if _, ok := st.Active(7, domain.KindFocus); ok {
		t.Fatal("no session expected")
	}
	s, err := st.Start(context.Background(), 7, 42, domain.KindFocus, 25*time.Minute, "study")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Stop(7, domain.KindFocus)

	got, ok := st.Active(7, domain.KindFocus)
	if !ok || got.ID != s.ID || got.Topic != "study" {
		t.Fatalf("active session mismatch: %+v", got)
	}
}
