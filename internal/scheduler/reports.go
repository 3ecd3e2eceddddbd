package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkarev/teampulse/internal/domain"
)

// ReportStore is the slice of the repository the report checker needs.
type ReportStore interface {
	ListReportSchedules(ctx context.Context) ([]domain.ReportSchedule, error)
	SetReportLastSent(ctx context.Context, chatID int64, freq domain.Frequency, at time.Time) error
	PeriodStats(ctx context.Context, chatID int64, since time.Time) (*domain.PeriodStats, error)
}

// Reporter periodically checks report subscriptions and sends the ones whose
// interval has elapsed since their last send. A subscription with no prior
// send fires on the first eligible tick.
type Reporter struct {
	store    ReportStore
	log      *zap.Logger
	sender   Sender
	interval time.Duration
	now      Clock
}

// NewReporter creates the report checker.
func NewReporter(store ReportStore, log *zap.Logger, sender Sender, interval time.Duration) *Reporter {
	return &Reporter{
		store:    store,
		log:      log,
		sender:   sender,
		interval: interval,
		now:      UTCNow,
	}
}

// Run starts the check loop until ctx is canceled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("report checker stopping")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reporter) tick(ctx context.Context) {
	now := r.now()

	scheds, err := r.store.ListReportSchedules(ctx)
	if err != nil {
		r.log.Warn("report schedules unavailable", zap.Error(err))
		return
	}

	for _, s := range scheds {
		if !s.Due(now) {
			continue
		}

		text, err := r.Build(ctx, s.ChatID, s.Frequency, now)
		if err != nil {
			r.log.Warn("report content unavailable",
				zap.Int64("chatID", s.ChatID), zap.Error(err))
			continue
		}
		if err := r.sender.SendMessage(s.ChatID, text); err != nil {
			// Marked sent regardless: the next interval gets a fresh attempt.
			r.log.Error("report delivery failed",
				zap.Int64("chatID", s.ChatID), zap.Error(err))
		}
		if err := r.store.SetReportLastSent(ctx, s.ChatID, s.Frequency, now); err != nil {
			r.log.Warn("report last_sent not recorded",
				zap.Int64("chatID", s.ChatID), zap.Error(err))
		}
	}
}

// Build composes the report text for a chat covering one frequency interval
// ending at now. Also used by the manual /report_daily and /report_weekly
// commands.
func (r *Reporter) Build(ctx context.Context, chatID int64, freq domain.Frequency, now time.Time) (string, error) {
	since := now.Add(-freq.Interval())
	ps, err := r.store.PeriodStats(ctx, chatID, since)
	if err != nil {
		return "", err
	}

	title := "📊 Daily activity report"
	if freq == domain.FreqWeekly {
		title = "📊 Weekly activity report"
	}
	return fmt.Sprintf("%s — %s\nStandups submitted: %d\nFocus time: %dh %dm\nPomodoros completed: %d",
		title, now.Format("2006-01-02"),
		ps.Standups,
		ps.FocusMinutes/60, ps.FocusMinutes%60,
		ps.Pomodoros,
	), nil
}
