package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/ulugbek-dev/tarjimon/internal/config"
	"github.com/ulugbek-dev/tarjimon/internal/messages"
)

// RateLimiter enforces a per-chat requests-per-minute limit. It is distinct
// from the usage ledger: this guards against bursts, the ledger governs
// quotas.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[int64]*limiterEntry
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{entries: make(map[int64]*limiterEntry)}
}

func (r *RateLimiter) allow(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[chatID]
	if !ok {
		e = &limiterEntry{
			lim: rate.NewLimiter(rate.Every(time.Minute/config.RequestsPerMinute), config.RequestsPerMinute),
		}
		r.entries[chatID] = e
	}
	e.lastSeen = time.Now()
	return e.lim.Allow()
}

// Cleanup removes limiter entries idle longer than ttl and returns the
// number removed.
func (r *RateLimiter) Cleanup(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for chatID, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, chatID)
			removed++
		}
	}
	return removed
}

// Middleware returns the bot middleware enforcing the limit on messages.
// Callback queries and payment updates pass through untouched.
func (r *RateLimiter) Middleware() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if update.Message == nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID
			if !r.allow(chatID) {
				slog.Debug("rate limited", "chat_id", chatID, "limit", config.RequestsPerMinute)
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   messages.TooManyRequests(config.RequestsPerMinute),
				})
				return
			}

			next(ctx, b, update)
		}
	}
}
