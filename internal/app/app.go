package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mkarev/teampulse/internal/config"
	"github.com/mkarev/teampulse/internal/scheduler"
	"github.com/mkarev/teampulse/internal/store"
	"github.com/mkarev/teampulse/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting teampulse",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("reminderPoll", a.cfg.ReminderPoll),
	)

	// Open SQLite. Persistence is best-effort: if the store cannot be
	// opened, the bot runs cache-only and schedules are lost on restart.
	if repo, err := store.OpenSQLite(ctx, a.cfg.DBPath); err != nil {
		a.log.Warn("sqlite unavailable, running without persistence", zap.Error(err))
	} else {
		a.repo = repo
		a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))
	}

	a.router = telegram.NewRouter(a.bot, a.log, a.repo, a.cfg.DefaultTZ)

	disp := scheduler.New(a.repo, a.log, a.router, a.cfg.ReminderPoll)
	sessions := scheduler.NewSessionTimers(a.repo, a.log, a.router)
	countdowns := scheduler.NewCountdowns(a.log, a.router, a.cfg.CountdownPoll)

	var reporter *scheduler.Reporter
	if a.repo != nil {
		reporter = scheduler.NewReporter(a.repo, a.log, a.router, a.cfg.ReportPoll)
	}
	a.router.Bind(disp, sessions, countdowns, reporter)

	if err := disp.Load(ctx); err != nil {
		a.log.Warn("reminder rehydration failed, starting empty", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go disp.Run(ctx)
	go countdowns.Run(ctx)
	if a.repo != nil {
		go reporter.Run(ctx)
		go scheduler.NewStandupPrompter(a.repo, a.log, a.router, a.cfg.StandupPoll).Run(ctx)
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
