package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ulugbek-dev/tarjimon/internal/domain"
	"github.com/ulugbek-dev/tarjimon/internal/lib/sl"
	"github.com/ulugbek-dev/tarjimon/internal/messages"
)

// HandlePreCheckout approves the pre-checkout query. The actual quota grant
// happens only after the successful-payment update arrives.
func (h *Handler) HandlePreCheckout(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.PreCheckoutQuery == nil {
		return
	}
	b.AnswerPreCheckoutQuery(ctx, &bot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: update.PreCheckoutQuery.ID,
		OK:                 true,
	})
}

// HandleSuccessfulPayment is called from the default message handler once
// Telegram confirms the Stars payment.
func (h *Handler) HandleSuccessfulPayment(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.SuccessfulPayment == nil || update.Message.From == nil {
		return
	}

	payment := update.Message.SuccessfulPayment
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	act, err := h.payments.ProcessSuccessfulPayment(ctx, userID, payment.TelegramPaymentChargeID, payment.TotalAmount)
	if errors.Is(err, domain.ErrPaymentAlreadyProcessed) {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.PaymentAlreadyProcessed})
		return
	}
	if err != nil {
		slog.Error("process successful payment", sl.Err(err), "user_id", userID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.ActivationError})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      messages.PaymentSuccess(act.WindowEnd, act.TranslationsLeft),
		ParseMode: models.ParseModeHTML,
	})
}
