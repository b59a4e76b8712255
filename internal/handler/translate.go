package handler

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ulugbek-dev/tarjimon/internal/config"
	"github.com/ulugbek-dev/tarjimon/internal/domain"
	"github.com/ulugbek-dev/tarjimon/internal/lib/sl"
	"github.com/ulugbek-dev/tarjimon/internal/messages"
	"github.com/ulugbek-dev/tarjimon/internal/service"
	tg "github.com/ulugbek-dev/tarjimon/internal/telegram"
)

const (
	contentTypeText  = "text"
	contentTypeImage = "image"
)

// HandleTranslate is the default handler path for plain messages: it checks
// the ledger, runs the translation, records the actual token usage and
// replies. Quota denials are ordinary replies, never errors.
func (h *Handler) HandleTranslate(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	userID := msg.From.ID

	hasPhoto := len(msg.Photo) > 0
	text := msg.Text
	if !hasPhoto && text == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.SendTextOrImage})
		return
	}

	dec, err := h.ledger.CheckRateLimit(ctx, userID)
	if err != nil {
		slog.Error("check rate limit", sl.Err(err), "user_id", userID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.TryAgainLater})
		return
	}
	if !dec.Allowed {
		h.sendDenial(ctx, b, chatID, dec)
		return
	}

	statusText := messages.Translating
	if hasPhoto {
		statusText = messages.Processing
	}
	statusMsg, _ := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: statusText})

	stopTyping := tg.StartTyping(ctx, b, chatID)
	defer stopTyping()

	var result *service.TranslationResult
	var contentType string
	if hasPhoto {
		contentType = contentTypeImage
		result, err = h.translatePhoto(ctx, b, msg)
	} else {
		contentType = contentTypeText
		result, err = h.gemini.TranslateText(ctx, text)
	}
	if err != nil {
		h.deleteStatus(ctx, b, chatID, statusMsg)
		h.sendTranslationError(ctx, b, chatID, err)
		return
	}

	if err := h.ledger.RecordUsage(ctx, userID, service.Usage{
		ServiceName:  h.cfg.GeminiModel,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		ContentType:  contentType,
	}); err != nil {
		// The reply is still delivered; the ledger catches up on the next
		// check when storage recovers.
		slog.Error("record usage", sl.Err(err), "user_id", userID)
	}

	label := messages.LabelTextTranslation
	if hasPhoto {
		label = messages.LabelImageTranslation
	}
	reply := label + tg.Escape(result.Text)

	// A short translation replaces the status message in place; a long one
	// is sent split, replying to the original.
	if statusMsg != nil && utf8.RuneCountInString(reply) <= tg.MaxMessageLen {
		if err := tg.EditLongMessage(ctx, b, chatID, statusMsg.ID, reply); err == nil {
			return
		}
	}
	h.deleteStatus(ctx, b, chatID, statusMsg)
	replyTo := msg.ID
	if err := tg.SendLongMessage(ctx, b, chatID, reply, &replyTo); err != nil {
		slog.Error("send translation", sl.Err(err), "chat_id", chatID)
	}
}

func (h *Handler) deleteStatus(ctx context.Context, b *bot.Bot, chatID int64, statusMsg *models.Message) {
	if statusMsg == nil {
		return
	}
	b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: statusMsg.ID})
}

func (h *Handler) translatePhoto(ctx context.Context, b *bot.Bot, msg *models.Message) (*service.TranslationResult, error) {
	// Telegram orders photo sizes ascending; take the largest.
	photo := msg.Photo[len(msg.Photo)-1]
	maxBytes := int64(config.MaxImageSizeMB) * 1024 * 1024

	data, err := tg.DownloadFile(ctx, b, photo.FileID, maxBytes)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, domain.ErrImageTooLarge
	}

	return h.gemini.TranslateImage(ctx, data, "image/jpeg", msg.Caption)
}

func (h *Handler) sendDenial(ctx context.Context, b *bot.Bot, chatID int64, dec service.Decision) {
	switch dec.Reason {
	case service.ReasonDailyTokenLimit:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   messages.DailyTokenLimit(dec.ResetsAt),
		})
	case service.ReasonMonthlyBudget:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   messages.MonthlyBudget(),
		})
	case service.ReasonTranslationLimit:
		var text, btn string
		if dec.Tier == domain.TierPremium {
			text = messages.TranslationLimitPremium(
				dec.ResetsAt,
				config.PremiumPriceStars, config.PremiumTranslations, config.PremiumPeriodDays,
			)
			btn = messages.BtnIncreaseLimit
		} else {
			text = messages.TranslationLimitFree(
				config.FreeTranslations, dec.ResetsAt,
				config.PremiumPriceStars, config.PremiumTranslations, config.PremiumPeriodDays,
			)
			btn = messages.BtnSubscribe
		}
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   text,
			ReplyMarkup: tg.InlineKeyboard(
				tg.ButtonRow(tg.InlineButton(btn, "premium_buy")),
			),
		})
	default:
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.TryAgainLater})
	}
}

func (h *Handler) sendTranslationError(ctx context.Context, b *bot.Bot, chatID int64, err error) {
	switch {
	case errors.Is(err, domain.ErrTextTooLong):
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.TextTooLong(config.MaxTextLength)})
	case errors.Is(err, domain.ErrImageTooLarge):
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.ImageTooLarge(config.MaxImageSizeMB)})
	case errors.Is(err, domain.ErrEmptyContent):
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.SendTextOrImage})
	default:
		slog.Error("translate", sl.Err(err), "chat_id", chatID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: messages.GenericError})
	}
}
