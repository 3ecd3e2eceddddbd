package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/mkarev/teampulse/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine; one connection avoids lock churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- scheduled actions ---

// UpsertAction inserts or updates a scheduled action keyed by its id.
func (r *SQLiteRepo) UpsertAction(ctx context.Context, a *domain.Action) error {
	if a == nil {
		return errors.New("nil action")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_actions (
			id, owner_id, chat_id, payload, trigger_at, recurring, frequency, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id   = excluded.owner_id,
			chat_id    = excluded.chat_id,
			payload    = excluded.payload,
			trigger_at = excluded.trigger_at,
			recurring  = excluded.recurring,
			frequency  = excluded.frequency`,
		a.ID, a.OwnerID, a.ChatID, a.Payload,
		a.TriggerAt.UTC().Unix(), boolToInt(a.Recurring), string(a.Frequency),
		a.CreatedAt.UTC().Unix(),
	)
	return err
}

// DeleteAction removes an action by id. Deleting a missing id is not an error.
func (r *SQLiteRepo) DeleteAction(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM scheduled_actions WHERE id = ?`, id)
	return err
}

// LoadActions returns every persisted action ordered by trigger time
// ascending. Used at startup to rebuild the dispatcher cache.
func (r *SQLiteRepo) LoadActions(ctx context.Context) ([]domain.Action, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, chat_id, payload, trigger_at, recurring, frequency, created_at
		FROM scheduled_actions
		ORDER BY trigger_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Action
	for rows.Next() {
		var (
			a            domain.Action
			recurringInt int
			freq         string
			triggerAt    int64
			createdAt    int64
		)
		if err := rows.Scan(
			&a.ID, &a.OwnerID, &a.ChatID, &a.Payload,
			&triggerAt, &recurringInt, &freq, &createdAt,
		); err != nil {
			return nil, err
		}
		a.TriggerAt = time.Unix(triggerAt, 0).UTC()
		a.Recurring = recurringInt != 0
		a.Frequency = domain.Frequency(freq)
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		res = append(res, a)
	}
	return res, rows.Err()
}

// --- report schedules ---

// UpsertReportSchedule inserts or updates the report subscription for a chat
// and frequency pair.
func (r *SQLiteRepo) UpsertReportSchedule(ctx context.Context, s *domain.ReportSchedule) error {
	if s == nil {
		return errors.New("nil schedule")
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO report_schedules (chat_id, frequency, last_sent_at, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, frequency) DO UPDATE SET
			active = excluded.active`,
		s.ChatID, string(s.Frequency), toNullInt64(s.LastSent),
		boolToInt(s.Active), created.Unix(),
	)
	return err
}

// DeleteReportSchedules removes every report subscription for a chat.
func (r *SQLiteRepo) DeleteReportSchedules(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM report_schedules WHERE chat_id = ?`, chatID)
	return err
}

// ListReportSchedules returns all active report subscriptions.
func (r *SQLiteRepo) ListReportSchedules(ctx context.Context) ([]domain.ReportSchedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, frequency, last_sent_at, active, created_at
		FROM report_schedules
		WHERE active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.ReportSchedule
	for rows.Next() {
		var (
			s         domain.ReportSchedule
			freq      string
			lastNS    sql.NullInt64
			activeInt int
			createdAt int64
		)
		if err := rows.Scan(&s.ChatID, &freq, &lastNS, &activeInt, &createdAt); err != nil {
			return nil, err
		}
		s.Frequency = domain.Frequency(freq)
		s.LastSent = fromNullInt64(lastNS)
		s.Active = activeInt != 0
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		res = append(res, s)
	}
	return res, rows.Err()
}

// SetReportLastSent records the time a report was last delivered.
func (r *SQLiteRepo) SetReportLastSent(ctx context.Context, chatID int64, freq domain.Frequency, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE report_schedules
		SET last_sent_at = ?
		WHERE chat_id = ? AND frequency = ?`,
		at.UTC().Unix(), chatID, string(freq),
	)
	return err
}

// --- standup schedules and responses ---

// UpsertStandupSchedule inserts or updates a chat's standup prompt config.
func (r *SQLiteRepo) UpsertStandupSchedule(ctx context.Context, s *domain.StandupSchedule) error {
	if s == nil {
		return errors.New("nil schedule")
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO standup_schedules (chat_id, prompt_min, days, tz, last_day, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			prompt_min = excluded.prompt_min,
			days       = excluded.days,
			tz         = excluded.tz,
			active     = excluded.active`,
		s.ChatID, s.PromptMin, s.Days.String(), s.TZ, s.LastDay,
		boolToInt(s.Active), created.Unix(),
	)
	return err
}

// DeleteStandupSchedule removes a chat's standup prompt config.
func (r *SQLiteRepo) DeleteStandupSchedule(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM standup_schedules WHERE chat_id = ?`, chatID)
	return err
}

// ListStandupSchedules returns all active standup prompt configs.
func (r *SQLiteRepo) ListStandupSchedules(ctx context.Context) ([]domain.StandupSchedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, prompt_min, days, tz, last_day, active, created_at
		FROM standup_schedules
		WHERE active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.StandupSchedule
	for rows.Next() {
		var (
			s         domain.StandupSchedule
			days      string
			activeInt int
			createdAt int64
		)
		if err := rows.Scan(&s.ChatID, &s.PromptMin, &days, &s.TZ, &s.LastDay, &activeInt, &createdAt); err != nil {
			return nil, err
		}
		set, err := domain.ParseWeekdays(days)
		if err == nil {
			s.Days = set
		}
		s.Active = activeInt != 0
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		res = append(res, s)
	}
	return res, rows.Err()
}

// SetStandupPrompted records the local day a chat was last prompted.
func (r *SQLiteRepo) SetStandupPrompted(ctx context.Context, chatID int64, day string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE standup_schedules
		SET last_day = ?
		WHERE chat_id = ?`,
		day, chatID,
	)
	return err
}

// SaveStandupResponse inserts or updates a user's standup entry for a day.
// Resubmitting on the same day overwrites the previous answers.
func (r *SQLiteRepo) SaveStandupResponse(ctx context.Context, resp *domain.StandupResponse) error {
	if resp == nil {
		return errors.New("nil response")
	}
	created := resp.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO standup_responses (chat_id, user_id, response_date, yesterday, today, blockers, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, user_id, response_date) DO UPDATE SET
			yesterday = excluded.yesterday,
			today     = excluded.today,
			blockers  = excluded.blockers`,
		resp.ChatID, resp.UserID, resp.Date,
		resp.Yesterday, resp.Today, resp.Blockers, created.Unix(),
	)
	return err
}

// --- focus sessions and stats ---

// InsertFocusSession records the start of a focus or pomodoro session.
func (r *SQLiteRepo) InsertFocusSession(ctx context.Context, s *domain.FocusSession) error {
	if s == nil {
		return errors.New("nil session")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO focus_sessions (session_id, user_id, chat_id, kind, started_at, ended_at, minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.ChatID, s.Kind,
		s.StartedAt.UTC().Unix(), toNullInt64(s.EndedAt), s.Minutes,
	)
	return err
}

// CloseFocusSession marks a session finished with its realized length.
func (r *SQLiteRepo) CloseFocusSession(ctx context.Context, id string, endedAt time.Time, minutes int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE focus_sessions
		SET ended_at = ?, minutes = ?
		WHERE session_id = ?`,
		endedAt.UTC().Unix(), minutes, id,
	)
	return err
}

// BumpStats additively updates a user's productivity aggregate.
func (r *SQLiteRepo) BumpStats(ctx context.Context, userID, chatID int64, d domain.StatsDelta) error {
	now := time.Now().UTC().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO productivity_stats (
			user_id, chat_id, focus_minutes, focus_sessions, pomodoros, dnd_minutes, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, chat_id) DO UPDATE SET
			focus_minutes  = productivity_stats.focus_minutes + excluded.focus_minutes,
			focus_sessions = productivity_stats.focus_sessions + excluded.focus_sessions,
			pomodoros      = productivity_stats.pomodoros + excluded.pomodoros,
			dnd_minutes    = productivity_stats.dnd_minutes + excluded.dnd_minutes,
			updated_at     = excluded.updated_at`,
		userID, chatID, d.FocusMinutes, d.FocusCount, d.Pomodoros, d.DNDMinutes, now,
	)
	return err
}

// GetStats returns a user's aggregate, or ErrNotFound.
func (r *SQLiteRepo) GetStats(ctx context.Context, userID, chatID int64) (*domain.Stats, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT focus_minutes, focus_sessions, pomodoros, dnd_minutes, updated_at
		FROM productivity_stats
		WHERE user_id = ? AND chat_id = ?`,
		userID, chatID,
	)
	var (
		s         domain.Stats
		updatedAt int64
	)
	if err := row.Scan(&s.FocusMinutes, &s.FocusCount, &s.Pomodoros, &s.DNDMinutes, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.UserID = userID
	s.ChatID = chatID
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &s, nil
}

// PeriodStats summarizes a chat's activity since the given time.
func (r *SQLiteRepo) PeriodStats(ctx context.Context, chatID int64, since time.Time) (*domain.PeriodStats, error) {
	sinceUnix := since.UTC().Unix()
	var ps domain.PeriodStats

	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM standup_responses
		WHERE chat_id = ? AND created_at >= ?`,
		chatID, sinceUnix,
	)
	if err := row.Scan(&ps.Standups); err != nil {
		return nil, err
	}

	row = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(minutes), 0)
		FROM focus_sessions
		WHERE chat_id = ? AND kind != 'pomodoro' AND ended_at IS NOT NULL AND ended_at >= ?`,
		chatID, sinceUnix,
	)
	if err := row.Scan(&ps.FocusMinutes); err != nil {
		return nil, err
	}

	row = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM focus_sessions
		WHERE chat_id = ? AND kind = 'pomodoro' AND ended_at IS NOT NULL AND ended_at >= ?`,
		chatID, sinceUnix,
	)
	if err := row.Scan(&ps.Pomodoros); err != nil {
		return nil, err
	}

	return &ps, nil
}

// boolToInt converts a boolean to 1/0 for SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
