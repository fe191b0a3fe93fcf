package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"calorie-bot/config"
	"calorie-bot/internal/bot"
	"calorie-bot/internal/db"
	"calorie-bot/internal/donation"
	"calorie-bot/internal/gpt"
	"calorie-bot/internal/payment"
	"calorie-bot/internal/scheduler"
	"calorie-bot/internal/server"
	"calorie-bot/internal/session"
	"calorie-bot/pkg/logger"
)

// storage is what the bot, the broadcast and the webhook need from the database.
type storage interface {
	bot.Storage
	scheduler.Storage
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatalw("Failed to load config", "error", err)
	}

	l := logger.New(cfg.Log.Level)
	if cfg.Log.Development {
		l = logger.NewDevelopment()
	}
	defer l.Sync()
	l.Info("Starting calorie diary bot...")

	if err := cfg.Validate(); err != nil {
		l.Fatalw("Invalid configuration", "error", err)
	}
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		l.Fatalw("Invalid timezone", "error", err)
	}

	store, err := openStorage(cfg, l)
	if err != nil {
		l.Fatalw("Failed to open storage", "error", err)
	}
	defer store.Close()

	gptClient := gpt.NewClient(cfg.GPT.APIKey).
		WithModel(cfg.GPT.Model).
		WithVisionModel(cfg.GPT.VisionModel).
		WithMaxTokens(cfg.GPT.MaxTokens)

	var (
		stripeClient *payment.StripeClient
		linker       donation.Linker
	)
	if cfg.Stripe.SecretKey != "" {
		stripeClient = payment.NewStripeClient(cfg.Stripe)
		linker = stripeClient
	}

	telegramBot := bot.NewTelegramBot(cfg.Telegram, l)

	router := bot.NewRouter(session.NewStore(), store, gptClient, telegramBot, l).
		WithClock(func() time.Time { return time.Now().In(loc) }).
		WithDonationLinks(donation.NewLinks(linker, cfg.Donation.URL))
	dispatcher := bot.NewDispatcher(router, cfg.Bot.Workers, 64, l)

	broadcaster := scheduler.NewBroadcaster(store, telegramBot, l).
		WithSummarizer(gptClient).
		WithDonationLinks(linker, cfg.Donation.URL).
		WithRateLimit(cfg.Scheduler.SendRate, cfg.Scheduler.SendBurst)
	daily, err := scheduler.NewDaily(cfg.Scheduler, broadcaster, l)
	if err != nil {
		l.Fatalw("Failed to schedule daily summary", "error", err)
	}

	var stripeHook http.HandlerFunc
	if stripeClient != nil && stripeClient.WebhookConfigured() {
		stripeHook = bot.NewStripeWebhook(stripeClient, store, telegramBot, l).HandleStripeWebhook
	}
	httpServer := server.NewServer(cfg.Server.Port, stripeHook, l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// in-flight events finish even after a shutdown signal
	dispatcher.Start(context.Background())
	daily.Start(ctx)

	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Errorw("HTTP server failed", "error", err)
			stop()
		}
	}()

	bot.RunWithRestart(ctx, cfg.Bot.RestartDelay, func(ctx context.Context) error {
		return telegramBot.Run(ctx, dispatcher)
	}, l)

	l.Info("Shutting down bot...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		l.Errorw("Error during HTTP server shutdown", "error", err)
	}
	if err := daily.Stop(shutdownCtx); err != nil {
		l.Errorw("Error while waiting for the daily broadcast", "error", err)
	}
	dispatcher.Stop()

	l.Info("Bot stopped successfully")
}

func openStorage(cfg *config.Config, l *logger.Logger) (storage, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		l.Warn("Using in-memory storage, the diary is lost on restart")
		return db.NewMemoryDB(), nil
	}

	// Initialize database connection with retry
	var (
		database *db.PostgresDB
		err      error
	)
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		database, err = db.NewPostgresDB(cfg.DB)
		if err == nil {
			return database, nil
		}
		l.Errorw("Failed to connect to database, retrying...", "attempt", i+1, "error", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return nil, err
}
