package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken  string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath    string `envconfig:"DB_PATH" default:"./data/teampulse.db"`
	DefaultTZ string `envconfig:"DEFAULT_TZ" default:"UTC"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`

	// Poll intervals for the background loops.
	ReminderPoll  time.Duration `envconfig:"REMINDER_POLL" default:"30s"`
	CountdownPoll time.Duration `envconfig:"COUNTDOWN_POLL" default:"10s"`
	ReportPoll    time.Duration `envconfig:"REPORT_POLL" default:"10m"`
	StandupPoll   time.Duration `envconfig:"STANDUP_POLL" default:"1m"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
