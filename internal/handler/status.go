package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ulugbek-dev/tarjimon/internal/config"
	"github.com/ulugbek-dev/tarjimon/internal/domain"
	"github.com/ulugbek-dev/tarjimon/internal/lib/sl"
	"github.com/ulugbek-dev/tarjimon/internal/messages"
	tg "github.com/ulugbek-dev/tarjimon/internal/telegram"
)

func (h *Handler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	limits, err := h.ledger.RemainingLimits(ctx, userID)
	if err != nil {
		slog.Error("remaining limits on /status", sl.Err(err), "user_id", userID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.TryAgainLater})
		return
	}

	if limits.Tier == domain.TierPremium {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      messages.StatusPremium(limits.ResetsAt, limits.TranslationsLeft, limits.TokensLeft),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: messages.StatusFree(
			limits.TranslationsLeft, config.FreeTranslations, limits.TokensLeft,
			config.PremiumPriceStars, config.PremiumTranslations, config.PremiumPeriodDays,
		),
		ParseMode: models.ParseModeHTML,
		ReplyMarkup: tg.InlineKeyboard(
			tg.ButtonRow(tg.InlineButton(messages.BtnSubscribe, "premium_buy")),
		),
	})
}
