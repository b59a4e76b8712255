package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/ulugbek-dev/tarjimon/internal/config"
	"github.com/ulugbek-dev/tarjimon/internal/domain"
	"github.com/ulugbek-dev/tarjimon/internal/lib/sl"
	"github.com/ulugbek-dev/tarjimon/internal/messages"
	tg "github.com/ulugbek-dev/tarjimon/internal/telegram"
)

func (h *Handler) handlePremium(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	limits, err := h.ledger.RemainingLimits(ctx, userID)
	if err != nil {
		slog.Error("remaining limits on /premium", sl.Err(err), "user_id", userID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.TryAgainLater})
		return
	}

	var text, btn string
	if limits.Tier == domain.TierPremium {
		text = messages.SubscribePremium(limits.ResetsAt, limits.TranslationsLeft)
		btn = messages.BtnIncreaseLimit
	} else {
		text = messages.SubscribeFree(
			config.FreeTranslations,
			config.PremiumPriceStars, config.PremiumTranslations, config.PremiumPeriodDays,
		)
		btn = messages.BtnSubscribe
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		ReplyMarkup: tg.InlineKeyboard(
			tg.ButtonRow(tg.InlineButton(btn, "premium_buy")),
		),
	})
}

func (h *Handler) handlePremiumBuy(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	chatID := update.CallbackQuery.From.ID
	h.sendPremiumInvoice(ctx, b, chatID)
}

func (h *Handler) sendPremiumInvoice(ctx context.Context, b *bot.Bot, chatID int64) {
	_, err := b.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:      chatID,
		Title:       messages.PlanTitle,
		Description: messages.PlanDescription(config.PremiumTranslations, config.PremiumPeriodDays),
		Payload:     config.PremiumPlan + ":" + uuid.NewString(),
		Currency:    "XTR",
		Prices: []models.LabeledPrice{
			{Label: messages.PlanTitle, Amount: config.PremiumPriceStars},
		},
	})
	if err != nil {
		slog.Error("send invoice", sl.Err(err), "chat_id", chatID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.GenericError})
	}
}
