package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mkarev/teampulse/internal/domain"
)

// StandupStore is the slice of the repository the standup prompter needs.
type StandupStore interface {
	ListStandupSchedules(ctx context.Context) ([]domain.StandupSchedule, error)
	SetStandupPrompted(ctx context.Context, chatID int64, day string) error
}

const standupPrompt = "🌅 Standup time! Reply with /standup yesterday ; today ; blockers"

// StandupPrompter checks standup schedules once a minute and posts the
// prompt at most once per local day per chat.
type StandupPrompter struct {
	store    StandupStore
	log      *zap.Logger
	sender   Sender
	interval time.Duration
	now      Clock
}

// NewStandupPrompter creates the standup schedule checker.
func NewStandupPrompter(store StandupStore, log *zap.Logger, sender Sender, interval time.Duration) *StandupPrompter {
	return &StandupPrompter{
		store:    store,
		log:      log,
		sender:   sender,
		interval: interval,
		now:      UTCNow,
	}
}

// Run starts the check loop until ctx is canceled.
func (p *StandupPrompter) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("standup prompter stopping")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *StandupPrompter) tick(ctx context.Context) {
	now := p.now()

	scheds, err := p.store.ListStandupSchedules(ctx)
	if err != nil {
		p.log.Warn("standup schedules unavailable", zap.Error(err))
		return
	}

	for _, s := range scheds {
		day, due := s.Due(now)
		if !due {
			continue
		}
		if err := p.sender.SendMessage(s.ChatID, standupPrompt); err != nil {
			p.log.Error("standup prompt delivery failed",
				zap.Int64("chatID", s.ChatID), zap.Error(err))
		}
		// Recorded regardless of delivery: one prompt attempt per day.
		if err := p.store.SetStandupPrompted(ctx, s.ChatID, day); err != nil {
			p.log.Warn("standup prompt day not recorded",
				zap.Int64("chatID", s.ChatID), zap.Error(err))
		}
	}
}
