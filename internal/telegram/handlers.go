package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mkarev/teampulse/internal/domain"
	"github.com/mkarev/teampulse/internal/scheduler"
	"github.com/mkarev/teampulse/internal/store"
)

const countdownLayout = "2006-01-02 15:04"

// splitParts divides "a ; b ; c" into trimmed fields.
func splitParts(s string, n int) []string {
	parts := strings.SplitN(s, ";", n)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// formatDelta renders a duration as "2h 5m" or "5m".
func formatDelta(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// --- reminders ---

func (r *Router) handleRemind(ctx context.Context, chatID, userID int64, args string, recurring bool) {
	freq := domain.FreqNone
	if recurring {
		fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
		if len(fields) < 2 {
			r.sendText(chatID, remindRecurringUsage)
			return
		}
		var err error
		freq, err = domain.ParseFrequency(fields[0])
		if err != nil {
			r.sendText(chatID, badFrequencyText)
			return
		}
		args = fields[1]
	}

	parts := splitParts(args, 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		if recurring {
			r.sendText(chatID, remindRecurringUsage)
		} else {
			r.sendText(chatID, remindUsage)
		}
		return
	}

	when, ok := domain.ParseWhen(parts[0], r.now())
	if !ok {
		r.sendText(chatID, cantParseTimeText)
		return
	}

	a, err := r.disp.Schedule(ctx, userID, chatID, parts[1], when, freq)
	if err != nil {
		if errors.Is(err, domain.ErrPastTrigger) {
			r.sendText(chatID, pastTimeText)
			return
		}
		r.log.Error("schedule failed", zap.Error(err))
		r.sendText(chatID, internalErrText)
		return
	}

	reply := fmt.Sprintf("✅ Reminder %s set for %s UTC (in %s).",
		a.ID, a.TriggerAt.Format(countdownLayout), formatDelta(a.TriggerAt.Sub(r.now())))
	if a.Recurring {
		reply += fmt.Sprintf("\n🔄 Repeats %s. Use /remind_cancel %s to stop it.", a.Frequency, a.ID)
	}
	r.sendText(chatID, reply)
}

func (r *Router) handleReminderList(chatID, userID int64) {
	actions := r.disp.List(userID)
	if len(actions) == 0 {
		r.sendText(chatID, noRemindersText)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⏰ Your reminders (%d):\n", len(actions))
	for i, a := range actions {
		if i == 10 {
			fmt.Fprintf(&b, "… and %d more", len(actions)-10)
			break
		}
		fmt.Fprintf(&b, "%s — in %s — %s", a.ID, formatDelta(a.TriggerAt.Sub(r.now())), a.Payload)
		if a.Recurring {
			fmt.Fprintf(&b, " (🔄 %s)", a.Frequency)
		}
		b.WriteByte('\n')
	}
	r.sendText(chatID, strings.TrimRight(b.String(), "\n"))
}

func (r *Router) handleReminderCancel(ctx context.Context, chatID, userID int64, args string) {
	id := strings.TrimSpace(args)
	if id == "" {
		r.sendText(chatID, "Usage: /remind_cancel <id>")
		return
	}

	a, err := r.disp.Cancel(ctx, id, userID)
	switch {
	case errors.Is(err, scheduler.ErrNotFound):
		r.sendText(chatID, fmt.Sprintf("❌ Reminder %s not found.", strings.ToUpper(id)))
	case errors.Is(err, scheduler.ErrNotOwner):
		r.sendText(chatID, notYoursText)
	case err != nil:
		r.log.Error("cancel failed", zap.Error(err))
		r.sendText(chatID, internalErrText)
	default:
		r.sendText(chatID, fmt.Sprintf("🗑 Cancelled %s: %s", a.ID, a.Payload))
	}
}

func (r *Router) handleReminderClear(ctx context.Context, chatID, userID int64) {
	n := r.disp.Clear(ctx, userID)
	if n == 0 {
		r.sendText(chatID, noRemindersText)
		return
	}
	r.sendText(chatID, fmt.Sprintf("🗑 Deleted %d reminder(s).", n))
}

// --- focus / pomodoro / dnd / timer ---

func (r *Router) handleFocusStart(ctx context.Context, chatID, userID int64, args string) {
	minutes := 60
	focusType := "focus"

	fields := strings.Fields(args)
	if len(fields) > 0 {
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			r.sendText(chatID, "Usage: /focus [minutes] [focus|deep_work|study|coding|writing]")
			return
		}
		minutes = n
	}
	if len(fields) > 1 {
		focusType = strings.ToLower(fields[1])
		if !domain.ValidFocusType(focusType) {
			r.sendText(chatID, badFocusTypeText)
			return
		}
	}

	s, err := r.sessions.Start(ctx, userID, chatID, domain.KindFocus,
		time.Duration(minutes)*time.Minute, focusType)
	if err != nil {
		r.sendSessionErr(chatID, err, "focus session", "/focus_end")
		return
	}
	r.sendText(chatID, fmt.Sprintf("🎯 Focus session started: %d minutes of %s. Stay on it!", minutes, s.Topic))
}

func (r *Router) handleFocusEnd(ctx context.Context, chatID, userID int64) {
	s, err := r.sessions.Stop(userID, domain.KindFocus)
	if err != nil {
		r.sendText(chatID, "❌ No active focus session.")
		return
	}

	elapsed := int(r.now().Sub(s.StartedAt) / time.Minute)
	if r.repo != nil {
		if err := r.repo.CloseFocusSession(ctx, s.ID, r.now(), elapsed); err != nil {
			r.log.Warn("focus session not closed in store", zap.Error(err))
		} else if err := r.repo.BumpStats(ctx, userID, chatID,
			domain.StatsDelta{FocusMinutes: elapsed, FocusCount: 1}); err != nil {
			r.log.Warn("focus stats not recorded", zap.Error(err))
		}
	}
	r.sendText(chatID, fmt.Sprintf("✅ Focus session ended after %d minutes of %s.", elapsed, s.Topic))
}

func (r *Router) handleFocusStats(ctx context.Context, chatID, userID int64) {
	if r.repo == nil {
		r.sendText(chatID, storeDownText)
		return
	}
	stats, err := r.repo.GetStats(ctx, userID, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.sendText(chatID, "📊 No focus data yet. Start with /focus.")
			return
		}
		r.log.Warn("stats unavailable", zap.Error(err))
		r.sendText(chatID, storeDownText)
		return
	}
	r.sendText(chatID, fmt.Sprintf(
		"📊 Your productivity stats:\nFocus time: %dh %dm across %d sessions\nPomodoros: %d\nDND time: %dh %dm",
		stats.FocusMinutes/60, stats.FocusMinutes%60, stats.FocusCount,
		stats.Pomodoros,
		stats.DNDMinutes/60, stats.DNDMinutes%60,
	))
}

func (r *Router) handlePomodoroStart(ctx context.Context, chatID, userID int64, args string) {
	minutes := 25
	if f := strings.Fields(args); len(f) > 0 {
		n, err := strconv.Atoi(f[0])
		if err != nil {
			r.sendText(chatID, "Usage: /pomodoro [minutes]")
			return
		}
		minutes = n
	}

	_, err := r.sessions.Start(ctx, userID, chatID, domain.KindPomodoro,
		time.Duration(minutes)*time.Minute, "")
	if err != nil {
		r.sendSessionErr(chatID, err, "pomodoro", "/pomodoro_end")
		return
	}
	r.sendText(chatID, fmt.Sprintf("🍅 Pomodoro started: %d minutes. Focus!", minutes))
}

func (r *Router) handleDNDStart(ctx context.Context, chatID, userID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		r.sendText(chatID, "Usage: /dnd <minutes> [reason]")
		return
	}
	minutes, err := strconv.Atoi(fields[0])
	if err != nil {
		r.sendText(chatID, "Usage: /dnd <minutes> [reason]")
		return
	}
	reason := "Focus time"
	if len(fields) > 1 {
		reason = strings.Join(fields[1:], " ")
	}

	_, err = r.sessions.Start(ctx, userID, chatID, domain.KindDND,
		time.Duration(minutes)*time.Minute, reason)
	if err != nil {
		r.sendSessionErr(chatID, err, "DND period", "/dnd_end")
		return
	}
	r.sendText(chatID, fmt.Sprintf("🔕 Do-not-disturb for %d minutes: %s", minutes, reason))
}

func (r *Router) handleDNDEnd(ctx context.Context, chatID, userID int64) {
	s, err := r.sessions.Stop(userID, domain.KindDND)
	if err != nil {
		r.sendText(chatID, "❌ You are not in DND mode.")
		return
	}
	elapsed := int(r.now().Sub(s.StartedAt) / time.Minute)
	if r.repo != nil {
		if err := r.repo.BumpStats(ctx, userID, chatID, domain.StatsDelta{DNDMinutes: elapsed}); err != nil {
			r.log.Warn("dnd stats not recorded", zap.Error(err))
		}
	}
	r.sendText(chatID, fmt.Sprintf("🔔 DND disabled after %d minutes.", elapsed))
}

func (r *Router) handleDNDStatus(chatID, userID int64) {
	s, ok := r.sessions.Active(userID, domain.KindDND)
	if !ok {
		r.sendText(chatID, "🔔 You are not in DND mode.")
		return
	}
	left := s.StartedAt.Add(s.Duration).Sub(r.now())
	r.sendText(chatID, fmt.Sprintf("🔕 DND active: %s (ends in %s)", s.Topic, formatDelta(left)))
}

func (r *Router) handleTimerStart(ctx context.Context, chatID, userID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		r.sendText(chatID, "Usage: /timer <duration> [message], e.g. /timer 10m tea")
		return
	}
	d, err := domain.ParseTimerDuration(fields[0])
	if err != nil {
		r.sendText(chatID, "❌ Invalid duration. Use a number followed by s/m/h, e.g. 10m.")
		return
	}
	message := "Timer ended!"
	if len(fields) > 1 {
		message = strings.Join(fields[1:], " ")
	}

	_, err = r.sessions.Start(ctx, userID, chatID, domain.KindTimer, d, message)
	if err != nil {
		r.sendSessionErr(chatID, err, "timer", "/timer_stop")
		return
	}
	r.sendText(chatID, fmt.Sprintf("⏱ Timer started for %s.", fields[0]))
}

// handleSessionStop covers the stop commands with no completion recording.
func (r *Router) handleSessionStop(chatID, userID int64, what string) {
	kind := domain.KindTimer
	if what == "pomodoro" {
		kind = domain.KindPomodoro
	}
	if _, err := r.sessions.Stop(userID, kind); err != nil {
		r.sendText(chatID, fmt.Sprintf("❌ No active %s.", what))
		return
	}
	r.sendText(chatID, fmt.Sprintf("⏹ Your %s was stopped.", what))
}

func (r *Router) sendSessionErr(chatID int64, err error, what, stopCmd string) {
	switch {
	case errors.Is(err, scheduler.ErrSessionActive):
		r.sendText(chatID, fmt.Sprintf("❌ You already have an active %s. Use %s first.", what, stopCmd))
	case errors.Is(err, scheduler.ErrDurationRange):
		r.sendText(chatID, fmt.Sprintf("❌ %s", err))
	default:
		r.log.Error("session start failed", zap.Error(err))
		r.sendText(chatID, internalErrText)
	}
}

// --- countdowns ---

func (r *Router) handleCountdownAdd(chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		r.sendText(chatID, countdownUsage)
		return
	}
	name := fields[0]
	endAt, err := time.ParseInLocation(countdownLayout, fields[1]+" "+fields[2], time.UTC)
	if err != nil {
		r.sendText(chatID, countdownUsage)
		return
	}

	cd, err := r.countdowns.Add(name, chatID, endAt)
	if err != nil {
		r.sendText(chatID, pastTimeText)
		return
	}
	r.sendText(chatID, fmt.Sprintf("✅ Countdown %s for %q set until %s UTC.",
		cd.ID, cd.Name, cd.EndAt.Format(countdownLayout)))
}

func (r *Router) handleCountdownList(chatID int64) {
	list := r.countdowns.List(chatID)
	if len(list) == 0 {
		r.sendText(chatID, "ℹ️ No active countdowns.")
		return
	}
	var b strings.Builder
	b.WriteString("⏳ Active countdowns:\n")
	for _, cd := range list {
		fmt.Fprintf(&b, "%s: %s — ends in %s\n", cd.ID, cd.Name, formatDelta(cd.EndAt.Sub(r.now())))
	}
	r.sendText(chatID, strings.TrimRight(b.String(), "\n"))
}

func (r *Router) handleCountdownDelete(chatID int64, args string) {
	id := strings.TrimSpace(args)
	if id == "" {
		r.sendText(chatID, "Usage: /countdown_delete <id>")
		return
	}
	if !r.countdowns.Remove(id) {
		r.sendText(chatID, fmt.Sprintf("❌ Countdown %s not found.", strings.ToUpper(id)))
		return
	}
	r.sendText(chatID, fmt.Sprintf("🗑 Countdown %s deleted.", strings.ToUpper(id)))
}

// --- standups ---

func (r *Router) handleStandup(ctx context.Context, chatID, userID int64, args string) {
	if r.repo == nil {
		r.sendText(chatID, storeDownText)
		return
	}
	parts := splitParts(args, 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		r.sendText(chatID, standupUsage)
		return
	}
	blockers := "None"
	if len(parts) == 3 && parts[2] != "" {
		blockers = parts[2]
	}

	now := r.now()
	resp := &domain.StandupResponse{
		ChatID:    chatID,
		UserID:    userID,
		Date:      now.Format("2006-01-02"),
		Yesterday: parts[0],
		Today:     parts[1],
		Blockers:  blockers,
		CreatedAt: now,
	}
	if err := r.repo.SaveStandupResponse(ctx, resp); err != nil {
		r.log.Warn("standup not saved", zap.Error(err))
		r.sendText(chatID, storeDownText)
		return
	}
	r.sendText(chatID, "✅ Standup recorded. Have a productive day!")
}

func (r *Router) handleStandupSchedule(ctx context.Context, chatID int64, args string) {
	if r.repo == nil {
		r.sendText(chatID, storeDownText)
		return
	}
	fields := strings.Fields(args)
	if len(fields) < 2 {
		r.sendText(chatID, standupScheduleUsage)
		return
	}

	promptMin, err := domain.ParseClock(fields[0])
	if err != nil {
		r.sendText(chatID, standupScheduleUsage)
		return
	}
	days, err := domain.ParseWeekdays(fields[1])
	if err != nil {
		r.sendText(chatID, standupScheduleUsage)
		return
	}
	tz := r.defaultTZ
	if len(fields) > 2 {
		tz = fields[2]
	}
	if _, err := time.LoadLocation(tz); err != nil {
		r.sendText(chatID, fmt.Sprintf("❌ Unknown timezone %q. Use an IANA name like Europe/Berlin.", tz))
		return
	}

	s := &domain.StandupSchedule{
		ChatID:    chatID,
		PromptMin: promptMin,
		Days:      days,
		TZ:        tz,
		Active:    true,
		CreatedAt: r.now(),
	}
	if err := r.repo.UpsertStandupSchedule(ctx, s); err != nil {
		r.log.Warn("standup schedule not saved", zap.Error(err))
		r.sendText(chatID, storeDownText)
		return
	}
	r.sendText(chatID, fmt.Sprintf("✅ Standup prompt scheduled at %s (%s) on %s.",
		domain.FormatMinutes(promptMin), tz, days))
}

func (r *Router) handleStandupOff(ctx context.Context, chatID int64) {
	if r.repo == nil {
		r.sendText(chatID, storeDownText)
		return
	}
	if err := r.repo.DeleteStandupSchedule(ctx, chatID); err != nil {
		r.log.Warn("standup schedule not deleted", zap.Error(err))
		r.sendText(chatID, storeDownText)
		return
	}
	r.sendText(chatID, "🔕 Standup prompts disabled for this chat.")
}

// --- reports ---

func (r *Router) handleReportNow(ctx context.Context, chatID int64, freqArg string) {
	if r.reporter == nil {
		r.sendText(chatID, storeDownText)
		return
	}
	freq, _ := domain.ParseFrequency(freqArg)
	text, err := r.reporter.Build(ctx, chatID, freq, r.now())
	if err != nil {
		r.log.Warn("report unavailable", zap.Error(err))
		r.sendText(chatID, storeDownText)
		return
	}
	r.sendText(chatID, text)
}

func (r *Router) handleReportSchedule(ctx context.Context, chatID int64, args string) {
	if r.repo == nil {
		r.sendText(chatID, storeDownText)
		return
	}
	freq, err := domain.ParseFrequency(args)
	if err != nil || freq == domain.FreqHourly {
		r.sendText(chatID, "Usage: /report_schedule <daily|weekly>")
		return
	}

	s := &domain.ReportSchedule{
		ChatID:    chatID,
		Frequency: freq,
		Active:    true,
		CreatedAt: r.now(),
	}
	if err := r.repo.UpsertReportSchedule(ctx, s); err != nil {
		r.log.Warn("report schedule not saved", zap.Error(err))
		r.sendText(chatID, storeDownText)
		return
	}
	label := "Daily"
	if freq == domain.FreqWeekly {
		label = "Weekly"
	}
	r.sendText(chatID, fmt.Sprintf("✅ %s reports scheduled. The first one arrives within a few minutes.", label))
}

func (r *Router) handleReportOff(ctx context.Context, chatID int64) {
	if r.repo == nil {
		r.sendText(chatID, storeDownText)
		return
	}
	if err := r.repo.DeleteReportSchedules(ctx, chatID); err != nil {
		r.log.Warn("report schedules not deleted", zap.Error(err))
		r.sendText(chatID, storeDownText)
		return
	}
	r.sendText(chatID, "🔕 Scheduled reports disabled for this chat.")
}
