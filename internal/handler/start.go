package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ulugbek-dev/tarjimon/internal/config"
	"github.com/ulugbek-dev/tarjimon/internal/domain"
	"github.com/ulugbek-dev/tarjimon/internal/lib/sl"
	"github.com/ulugbek-dev/tarjimon/internal/messages"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	limits, err := h.ledger.RemainingLimits(ctx, userID)
	if err != nil {
		slog.Error("remaining limits on /start", sl.Err(err), "user_id", userID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.TryAgainLater})
		return
	}

	statusText := fmt.Sprintf("<b>Joriy reja:</b> %s", tierName(limits.Tier))
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      messages.Welcome(statusText, config.FreeTranslations, config.PremiumTranslations),
		ParseMode: models.ParseModeHTML,
	})
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   messages.Help(),
	})
}

func tierName(t domain.Tier) string {
	if t == domain.TierPremium {
		return "Premium"
	}
	return "Bepul"
}
