// Package handler contains the Telegram command, callback and message
// handlers wiring the bot surface to the services.
package handler

import (
	"github.com/go-telegram/bot"

	"github.com/ulugbek-dev/tarjimon/internal/config"
	"github.com/ulugbek-dev/tarjimon/internal/repository"
	"github.com/ulugbek-dev/tarjimon/internal/service"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	ledger      *service.Ledger
	payments    *service.PaymentService
	gemini      *service.GeminiService
	store       *repository.Store
	botUsername string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	Ledger      *service.Ledger
	Payments    *service.PaymentService
	Gemini      *service.GeminiService
	Store       *repository.Store
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		ledger:      deps.Ledger,
		payments:    deps.Payments,
		gemini:      deps.Gemini,
		store:       deps.Store,
		botUsername: deps.BotUsername,
	}
}
