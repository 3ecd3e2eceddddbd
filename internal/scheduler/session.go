package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkarev/teampulse/internal/domain"
)

var (
	ErrSessionActive = errors.New("a session of this kind is already active")
	ErrNoSession     = errors.New("no active session of this kind")
	ErrDurationRange = errors.New("duration out of allowed range")
)

// StatsRecorder persists session rows and aggregate updates on completion.
type StatsRecorder interface {
	InsertFocusSession(ctx context.Context, s *domain.FocusSession) error
	CloseFocusSession(ctx context.Context, id string, endedAt time.Time, minutes int) error
	BumpStats(ctx context.Context, userID, chatID int64, d domain.StatsDelta) error
}

type sessionKey struct {
	userID int64
	kind   domain.TimerKind
}

// Session is an ephemeral per-user timer. Not persisted: a restart loses all
// active sessions.
type Session struct {
	ID        string
	UserID    int64
	ChatID    int64
	Kind      domain.TimerKind
	Topic     string // focus type, DND reason or timer message
	StartedAt time.Time
	Duration  time.Duration

	timer *time.Timer
}

// SessionTimers manages focus, pomodoro, DND and ad-hoc countdown timers.
// Each Start schedules a single cancellable delayed task; Stop before expiry
// deterministically prevents the completion side effects.
type SessionTimers struct {
	stats  StatsRecorder // nil when persistence is unavailable
	log    *zap.Logger
	sender Sender
	now    Clock

	mu     sync.Mutex
	active map[sessionKey]*Session
}

// NewSessionTimers creates the session-timer manager.
func NewSessionTimers(stats StatsRecorder, log *zap.Logger, sender Sender) *SessionTimers {
	return &SessionTimers{
		stats:  stats,
		log:    log,
		sender: sender,
		now:    UTCNow,
		active: make(map[sessionKey]*Session),
	}
}

// Start begins a session timer for the user. It fails if the user already has
// an active timer of this kind, or if the duration is outside the kind's
// bounds. Focus and pomodoro starts are also recorded in the store.
func (st *SessionTimers) Start(ctx context.Context, userID, chatID int64, kind domain.TimerKind, d time.Duration, topic string) (*Session, error) {
	min, max := kind.Bounds()
	if d < min || d > max {
		return nil, fmt.Errorf("%w: %s-%s", ErrDurationRange, min, max)
	}

	key := sessionKey{userID: userID, kind: kind}
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ChatID:    chatID,
		Kind:      kind,
		Topic:     topic,
		StartedAt: st.now(),
		Duration:  d,
	}

	st.mu.Lock()
	if _, busy := st.active[key]; busy {
		st.mu.Unlock()
		return nil, ErrSessionActive
	}
	st.active[key] = s
	s.timer = time.AfterFunc(d, func() { st.complete(key, s.ID) })
	st.mu.Unlock()

	if st.stats != nil && (kind == domain.KindFocus || kind == domain.KindPomodoro) {
		row := &domain.FocusSession{
			ID:        s.ID,
			UserID:    userID,
			ChatID:    chatID,
			Kind:      sessionRowKind(kind, topic),
			StartedAt: s.StartedAt,
		}
		if err := st.stats.InsertFocusSession(ctx, row); err != nil {
			st.log.Warn("session not persisted", zap.String("id", s.ID), zap.Error(err))
		}
	}
	return s, nil
}

// Stop cancels the user's pending timer of the given kind before it fires.
// No completion side effect runs; the removed session is returned so callers
// can record elapsed time themselves (e.g. an explicit focus end).
func (st *SessionTimers) Stop(userID int64, kind domain.TimerKind) (*Session, error) {
	key := sessionKey{userID: userID, kind: kind}

	st.mu.Lock()
	s, ok := st.active[key]
	if !ok {
		st.mu.Unlock()
		return nil, ErrNoSession
	}
	delete(st.active, key)
	s.timer.Stop()
	st.mu.Unlock()

	return s, nil
}

// Active returns a copy of the user's running session of the given kind.
func (st *SessionTimers) Active(userID int64, kind domain.TimerKind) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.active[sessionKey{userID: userID, kind: kind}]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// complete runs when a timer expires. The map membership check makes Stop
// authoritative: a session removed before this fires does nothing.
func (st *SessionTimers) complete(key sessionKey, id string) {
	st.mu.Lock()
	s, ok := st.active[key]
	if !ok || s.ID != id {
		st.mu.Unlock()
		return
	}
	delete(st.active, key)
	st.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	minutes := int(s.Duration / time.Minute)
	if st.stats != nil {
		var err error
		switch s.Kind {
		case domain.KindFocus:
			if err = st.stats.CloseFocusSession(ctx, s.ID, st.now(), minutes); err == nil {
				err = st.stats.BumpStats(ctx, s.UserID, s.ChatID,
					domain.StatsDelta{FocusMinutes: minutes, FocusCount: 1})
			}
		case domain.KindPomodoro:
			if err = st.stats.CloseFocusSession(ctx, s.ID, st.now(), minutes); err == nil {
				err = st.stats.BumpStats(ctx, s.UserID, s.ChatID,
					domain.StatsDelta{Pomodoros: 1})
			}
		case domain.KindDND:
			err = st.stats.BumpStats(ctx, s.UserID, s.ChatID,
				domain.StatsDelta{DNDMinutes: minutes})
		}
		if err != nil {
			st.log.Warn("session stats not recorded", zap.String("id", s.ID), zap.Error(err))
		}
	}

	if err := st.sender.SendMessage(s.ChatID, completionText(s)); err != nil {
		st.log.Error("session completion not delivered",
			zap.String("id", s.ID), zap.Int64("chatID", s.ChatID), zap.Error(err))
	}
}

func completionText(s *Session) string {
	minutes := int(s.Duration / time.Minute)
	switch s.Kind {
	case domain.KindFocus:
		return fmt.Sprintf("✅ Focus session complete: %d minutes of %s.", minutes, s.Topic)
	case domain.KindPomodoro:
		return "🍅 Pomodoro complete! Time for a break."
	case domain.KindDND:
		return "🔔 Do-not-disturb is over. Welcome back!"
	default:
		msg := s.Topic
		if msg == "" {
			msg = "Timer ended!"
		}
		return "⏰ " + msg
	}
}

func sessionRowKind(kind domain.TimerKind, topic string) string {
	if kind == domain.KindPomodoro {
		return "pomodoro"
	}
	if topic != "" {
		return topic
	}
	return "focus"
}
