package store

import (
	"context"
	"time"

	"github.com/mkarev/teampulse/internal/domain"
)

// Repo defines storage operations for scheduled actions, periodic schedules
// and productivity data. All implementations must be safe for concurrent use.
// Callers treat failures as degraded persistence, not fatal errors.
type Repo interface {
	UpsertAction(ctx context.Context, a *domain.Action) error
	DeleteAction(ctx context.Context, id string) error
	LoadActions(ctx context.Context) ([]domain.Action, error)

	UpsertReportSchedule(ctx context.Context, s *domain.ReportSchedule) error
	DeleteReportSchedules(ctx context.Context, chatID int64) error
	ListReportSchedules(ctx context.Context) ([]domain.ReportSchedule, error)
	SetReportLastSent(ctx context.Context, chatID int64, freq domain.Frequency, at time.Time) error

	UpsertStandupSchedule(ctx context.Context, s *domain.StandupSchedule) error
	DeleteStandupSchedule(ctx context.Context, chatID int64) error
	ListStandupSchedules(ctx context.Context) ([]domain.StandupSchedule, error)
	SetStandupPrompted(ctx context.Context, chatID int64, day string) error

	SaveStandupResponse(ctx context.Context, r *domain.StandupResponse) error

	InsertFocusSession(ctx context.Context, s *domain.FocusSession) error
	CloseFocusSession(ctx context.Context, id string, endedAt time.Time, minutes int) error
	BumpStats(ctx context.Context, userID, chatID int64, d domain.StatsDelta) error
	GetStats(ctx context.Context, userID, chatID int64) (*domain.Stats, error)
	PeriodStats(ctx context.Context, chatID int64, since time.Time) (*domain.PeriodStats, error)

	Close() error
}
