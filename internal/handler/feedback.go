package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ulugbek-dev/tarjimon/internal/lib/sl"
	"github.com/ulugbek-dev/tarjimon/internal/messages"
)

func (h *Handler) handleFeedback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	from := update.Message.From

	text := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/feedback"))
	if text == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.FeedbackPrompt})
		return
	}

	if err := h.store.InsertFeedback(ctx, from.ID, from.Username, from.FirstName, text); err != nil {
		slog.Error("insert feedback", sl.Err(err), "user_id", from.ID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.TryAgainLater})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.FeedbackReceived})

	// Forward to admins so feedback is seen without opening the database.
	for _, adminID := range h.cfg.AdminIDs {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: adminID,
			Text:   "Feedback from " + from.FirstName + " (@" + from.Username + "):\n\n" + text,
		})
	}
}
