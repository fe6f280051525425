package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	TelegramToken string
	ChessAPIBase  string

	DatabaseURL string

	MessagesDir string

	SessionTTL        time.Duration
	SessionSweepEvery time.Duration
	LongPollTimeout   time.Duration
	RemoteCallTimeout time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		SessionTTL:        time.Hour,
		SessionSweepEvery: 10 * time.Minute,
		LongPollTimeout:   10 * time.Second,
		RemoteCallTimeout: 10 * time.Second,
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.ChessAPIBase = strings.TrimSpace(os.Getenv("CHESS_API_BASE_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_SWEEP_INTERVAL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionSweepEvery = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("LONG_POLL_TIMEOUT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LongPollTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("REMOTE_CALL_TIMEOUT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RemoteCallTimeout = time.Duration(n) * time.Second
		}
	}

	if cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.ChessAPIBase == "" {
		return nil, errors.New("CHESS_API_BASE_URL is required")
	}

	return cfg, nil
}
