package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/kapu/telegram-chess-bot/internal/config"
	"github.com/kapu/telegram-chess-bot/internal/dispatcher"
	"github.com/kapu/telegram-chess-bot/internal/gamelog"
	"github.com/kapu/telegram-chess-bot/internal/gamesvc"
	"github.com/kapu/telegram-chess-bot/internal/msgcat"
	"github.com/kapu/telegram-chess-bot/internal/obslog"
	"github.com/kapu/telegram-chess-bot/internal/session"
	"github.com/kapu/telegram-chess-bot/internal/telegram"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	client := gamesvc.NewClient(cfg.ChessAPIBase, gamesvc.WithTimeout(cfg.RemoteCallTimeout))
	store := session.NewStore()
	disp := dispatcher.New(client, store, cat)

	if cfg.DatabaseURL != "" {
		repo, err := gamelog.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("game archive init error: %v", err)
		}
		defer repo.Close()
		disp.AttachArchive(repo)
	}

	bot, err := telegram.New(cfg.TelegramToken, cfg.LongPollTimeout, cfg.RemoteCallTimeout, disp)
	if err != nil {
		log.Fatalf("telegram init error: %v", err)
	}
	disp.SetNotifier(bot)

	stopSweep := make(chan struct{})
	go sweepSessions(store, cfg.SessionTTL, cfg.SessionSweepEvery, stopSweep)

	go bot.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	obslog.L().Info("shutdown_begin")
	close(stopSweep)
	bot.Stop()
	obslog.L().Info("shutdown_complete")
}

func sweepSessions(store *session.Store, ttl, every time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := store.ExpireOlderThan(ttl); n > 0 {
				obslog.L().Info("session_sweep", zap.Int("expired", n))
			}
		}
	}
}
