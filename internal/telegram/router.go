package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mkarev/teampulse/internal/scheduler"
	"github.com/mkarev/teampulse/internal/store"
)

// Router wires Telegram updates to command handlers. It also implements
// scheduler.Sender, so every scheduler component delivers through it.
type Router struct {
	bot  *tgbotapi.BotAPI
	log  *zap.Logger
	repo store.Repo // nil when persistence is unavailable

	disp       *scheduler.Dispatcher
	sessions   *scheduler.SessionTimers
	countdowns *scheduler.Countdowns
	reporter   *scheduler.Reporter // nil when persistence is unavailable

	defaultTZ string
	now       scheduler.Clock
}

// NewRouter creates a Router. Scheduler components are attached with Bind
// after construction, since they need the router as their Sender.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, defaultTZ string) *Router {
	return &Router{
		bot:       bot,
		log:       log,
		repo:      repo,
		defaultTZ: defaultTZ,
		now:       scheduler.UTCNow,
	}
}

// Bind attaches the scheduler components the handlers drive.
func (r *Router) Bind(disp *scheduler.Dispatcher, sessions *scheduler.SessionTimers, countdowns *scheduler.Countdowns, reporter *scheduler.Reporter) {
	r.disp = disp
	r.sessions = sessions
	r.countdowns = countdowns
	r.reporter = reporter
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || !msg.IsCommand() || msg.From == nil {
		return
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID
	args := msg.CommandArguments()

	switch msg.Command() {
	case "start", "help":
		r.sendText(chatID, helpText)

	case "remind":
		r.handleRemind(ctx, chatID, userID, args, false)
	case "remind_recurring":
		r.handleRemind(ctx, chatID, userID, args, true)
	case "reminders":
		r.handleReminderList(chatID, userID)
	case "remind_cancel":
		r.handleReminderCancel(ctx, chatID, userID, args)
	case "remind_clear":
		r.handleReminderClear(ctx, chatID, userID)

	case "focus":
		r.handleFocusStart(ctx, chatID, userID, args)
	case "focus_end":
		r.handleFocusEnd(ctx, chatID, userID)
	case "focus_stats":
		r.handleFocusStats(ctx, chatID, userID)
	case "pomodoro":
		r.handlePomodoroStart(ctx, chatID, userID, args)
	case "pomodoro_end":
		r.handleSessionStop(chatID, userID, "pomodoro")
	case "dnd":
		r.handleDNDStart(ctx, chatID, userID, args)
	case "dnd_end":
		r.handleDNDEnd(ctx, chatID, userID)
	case "dnd_status":
		r.handleDNDStatus(chatID, userID)
	case "timer":
		r.handleTimerStart(ctx, chatID, userID, args)
	case "timer_stop":
		r.handleSessionStop(chatID, userID, "timer")

	case "countdown":
		r.handleCountdownAdd(chatID, args)
	case "countdowns":
		r.handleCountdownList(chatID)
	case "countdown_delete":
		r.handleCountdownDelete(chatID, args)

	case "standup":
		r.handleStandup(ctx, chatID, userID, args)
	case "standup_schedule":
		r.handleStandupSchedule(ctx, chatID, args)
	case "standup_off":
		r.handleStandupOff(ctx, chatID)

	case "report_daily":
		r.handleReportNow(ctx, chatID, "daily")
	case "report_weekly":
		r.handleReportNow(ctx, chatID, "weekly")
	case "report_schedule":
		r.handleReportSchedule(ctx, chatID, args)
	case "report_off":
		r.handleReportOff(ctx, chatID)

	default:
		r.sendText(chatID, unknownText)
	}
}

// SendMessage sends a plain text message to the given chat. This makes
// Router satisfy scheduler.Sender; the bot client's HTTP timeout bounds
// each delivery.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// sendText is SendMessage for handlers, where a send failure is only logged.
func (r *Router) sendText(chatID int64, text string) {
	if err := r.SendMessage(chatID, text); err != nil {
		r.log.Error("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}
