package telegram

// User-facing texts. Kept in one place so the wording stays consistent.

const helpText = `👋 teampulse — team productivity bot

Reminders:
/remind <when> ; <message> — one-time reminder
/remind_recurring <hourly|daily|weekly> <when> ; <message>
/reminders — list yours
/remind_cancel <id> · /remind_clear

Time examples: "in 30 minutes", "in 2 hours", "tomorrow 9am", "today 5pm", "14:30", "3pm"

Focus:
/focus [minutes] [type] · /focus_end · /focus_stats
/pomodoro [minutes] · /pomodoro_end
/dnd <minutes> [reason] · /dnd_end · /dnd_status
/timer <duration> [message] · /timer_stop

Countdowns:
/countdown <name> <YYYY-MM-DD HH:MM> (UTC) · /countdowns · /countdown_delete <id>

Standups:
/standup <yesterday> ; <today> [; blockers]
/standup_schedule <HH:MM> <mon,tue,...|weekdays|daily> [tz] · /standup_off

Reports:
/report_daily · /report_weekly
/report_schedule <daily|weekly> · /report_off`

const (
	unknownText       = "🤔 Unknown command. Try /help."
	internalErrText   = "❌ Something went wrong. Please try again."
	storeDownText     = "⚠️ Persistence is unavailable right now. Please try again later."
	cantParseTimeText = "❌ Could not parse that time. Try: \"in 30 minutes\", \"tomorrow 9am\", \"today 5pm\", \"14:30\"."
	pastTimeText      = "❌ That time is in the past."
	noRemindersText   = "ℹ️ You have no active reminders."
	notYoursText      = "❌ You can only cancel your own reminders."
	badFrequencyText  = "❌ Frequency must be hourly, daily or weekly."
	badFocusTypeText  = "❌ Focus type must be one of: focus, deep_work, study, coding, writing."

	remindUsage          = "Usage: /remind <when> ; <message>\nExample: /remind in 30 minutes ; stretch your legs"
	remindRecurringUsage = "Usage: /remind_recurring <hourly|daily|weekly> <when> ; <message>\nExample: /remind_recurring daily 9am ; standup in 15 minutes"
	countdownUsage       = "Usage: /countdown <name> <YYYY-MM-DD HH:MM> (24h, UTC)"
	standupUsage         = "Usage: /standup <yesterday> ; <today> [; blockers]"
	standupScheduleUsage = "Usage: /standup_schedule <HH:MM> <mon,tue,...|weekdays|daily> [timezone]"
)
