package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"

	tarjimon "github.com/ulugbek-dev/tarjimon"
	"github.com/ulugbek-dev/tarjimon/internal/config"
	"github.com/ulugbek-dev/tarjimon/internal/handler"
	"github.com/ulugbek-dev/tarjimon/internal/lib/sl"
	"github.com/ulugbek-dev/tarjimon/internal/middleware"
	"github.com/ulugbek-dev/tarjimon/internal/repository"
	"github.com/ulugbek-dev/tarjimon/internal/service"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load .env in development; real environment wins in production
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", sl.Err(err))
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open database
	db, err := repository.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(tarjimon.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", sl.Err(err))
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabasePath, migrationsFS); err != nil {
		slog.Error("failed to run migrations", sl.Err(err))
		os.Exit(1)
	}

	// Initialize services
	store := repository.NewStore(db)
	ledger := service.NewLedger(store)
	payments := service.NewPaymentService(store, ledger)

	gemini, err := service.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("failed to create gemini client", sl.Err(err))
		os.Exit(1)
	}
	defer gemini.Close()

	limiter := middleware.NewRateLimiter()

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			limiter.Middleware(),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			if update.PreCheckoutQuery != nil {
				h.HandlePreCheckout(ctx, b, update)
				return
			}
			if update.Message != nil && update.Message.SuccessfulPayment != nil {
				h.HandleSuccessfulPayment(ctx, b, update)
				return
			}
			// Photo messages carry no text, so they arrive here instead of
			// the text handler registered below.
			if update.Message != nil && len(update.Message.Photo) > 0 {
				h.HandleTranslate(ctx, b, update)
			}
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", sl.Err(err))
		os.Exit(1)
	}

	if cfg.DropPendingUpdates {
		b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true})
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", sl.Err(err))
		os.Exit(1)
	}

	h = handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		Ledger:      ledger,
		Payments:    payments,
		Gemini:      gemini,
		Store:       store,
		BotUsername: me.Username,
	})
	h.Register()

	// Any non-command text message is a translation request.
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		if len(update.Message.Text) > 0 && update.Message.Text[0] == '/' {
			return
		}
		h.HandleTranslate(ctx, b, update)
	})

	// Prune idle per-chat limiter entries
	go func() {
		ticker := time.NewTicker(config.LimiterCleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := limiter.Cleanup(config.LimiterEntryTTL); n > 0 {
					slog.Debug("limiter entries pruned", "count", n)
				}
			}
		}
	}()

	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
}
