package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ulugbek-dev/tarjimon/internal/config"
	"github.com/ulugbek-dev/tarjimon/internal/domain"
	"github.com/ulugbek-dev/tarjimon/internal/repository"
)

// Reason identifies why a request was denied.
type Reason string

const (
	ReasonDailyTokenLimit  Reason = "DAILY_TOKEN_LIMIT"
	ReasonTranslationLimit Reason = "TRANSLATION_LIMIT"
	ReasonMonthlyBudget    Reason = "MONTHLY_BUDGET"
)

// Decision is the outcome of a rate-limit check. Denial is a normal return
// value, not an error.
type Decision struct {
	Allowed          bool
	Reason           Reason
	Tier             domain.Tier
	TranslationsLeft int
	TokensLeft       int
	// ResetsAt is when the limit that caused the denial (or, when allowed,
	// the active quota window) resets.
	ResetsAt time.Time
}

// Limits is the read-only quota projection used by /status.
type Limits struct {
	Tier             domain.Tier
	TranslationsLeft int
	TokensLeft       int
	ResetsAt         time.Time
}

// Usage describes one completed AI call to be recorded.
type Usage struct {
	ServiceName  string
	InputTokens  int
	OutputTokens int
	ContentType  string
}

func (u Usage) total() int { return u.InputTokens + u.OutputTokens }

// Activation is the result of a premium purchase.
type Activation struct {
	WindowStart      time.Time
	WindowEnd        time.Time
	TranslationsLeft int
	Extended         bool
}

// Ledger tracks per-user translation counts, token consumption and
// subscription state, and answers "is this request allowed" before any AI
// call is made. All mutations run in short-lived transactions on the single
// store handle, so concurrent requests for one user cannot double-spend
// quota. The AI call itself always happens outside the ledger.
type Ledger struct {
	store *repository.Store
	now   func() time.Time
}

func NewLedger(store *repository.Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
}

// CheckRateLimit evaluates, in order, the daily token cap, the tier quota and
// the system-wide monthly budget. The user's row is created lazily on first
// interaction; stale windows are rolled over before evaluation. Callers must
// treat a returned error as a denial.
func (l *Ledger) CheckRateLimit(ctx context.Context, userID int64) (Decision, error) {
	var dec Decision
	err := l.store.InTx(ctx, func(tx *sqlx.Tx) error {
		rec, err := l.loadOrInit(ctx, tx, userID)
		if err != nil {
			return err
		}
		if l.rollover(rec) {
			if err := l.store.UpsertLedgerTx(ctx, tx, rec); err != nil {
				return err
			}
		}

		now := l.now().UTC()
		tokensLeft := config.DailyTokenLimit - rec.DailyTokens
		if tokensLeft < 0 {
			tokensLeft = 0
		}

		if rec.DailyTokens >= config.DailyTokenLimit {
			dec = Decision{
				Reason:           ReasonDailyTokenLimit,
				Tier:             rec.Tier,
				TranslationsLeft: translationsLeft(rec),
				TokensLeft:       0,
				ResetsAt:         nextUTCMidnight(now),
			}
			return nil
		}

		left := translationsLeft(rec)
		if left <= 0 {
			dec = Decision{
				Reason:           ReasonTranslationLimit,
				Tier:             rec.Tier,
				TranslationsLeft: 0,
				TokensLeft:       tokensLeft,
				ResetsAt:         windowEnd(rec),
			}
			return nil
		}

		monthly, err := l.store.MonthlyTokenTotalTx(ctx, tx, firstOfMonth(now))
		if err != nil {
			return err
		}
		if monthly >= config.MonthlySystemTokens {
			dec = Decision{
				Reason:           ReasonMonthlyBudget,
				Tier:             rec.Tier,
				TranslationsLeft: left,
				TokensLeft:       tokensLeft,
				ResetsAt:         firstOfNextMonth(now),
			}
			return nil
		}

		dec = Decision{
			Allowed:          true,
			Tier:             rec.Tier,
			TranslationsLeft: left,
			TokensLeft:       tokensLeft,
			ResetsAt:         windowEnd(rec),
		}
		return nil
	})
	if err != nil {
		return Decision{}, storageErr("check rate limit", err)
	}
	return dec, nil
}

// RecordUsage increments the active window's translation count and the daily
// token counter in one transaction, rolling stale windows over first. The
// token counter is incremented unconditionally with the actual usage reported
// by the AI provider (it may overshoot the daily cap; the next check denies).
// The translation count never passes the tier cap, so racing requests cannot
// produce more accepted increments than the quota allows. Every call also
// appends an audit row with the priced token usage.
func (l *Ledger) RecordUsage(ctx context.Context, userID int64, usage Usage) error {
	err := l.store.InTx(ctx, func(tx *sqlx.Tx) error {
		rec, err := l.loadOrInit(ctx, tx, userID)
		if err != nil {
			return err
		}
		l.rollover(rec)

		switch rec.Tier {
		case domain.TierPremium:
			if rec.PremiumUsed < rec.PremiumLimit {
				rec.PremiumUsed++
			}
		default:
			if rec.FreeUsed < config.FreeTranslations {
				rec.FreeUsed++
			}
		}
		rec.DailyTokens += usage.total()

		if err := l.store.UpsertLedgerTx(ctx, tx, rec); err != nil {
			return err
		}
		return l.store.InsertTokenUsageTx(ctx, tx, repository.TokenUsage{
			UserID:       userID,
			ServiceName:  usage.ServiceName,
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			TotalTokens:  usage.total(),
			CostUSD:      tokenCost(usage.InputTokens, usage.OutputTokens),
			ContentType:  usage.ContentType,
		})
	})
	if err != nil {
		return storageErr("record usage", err)
	}
	return nil
}

// ActivatePremium switches the user to the premium tier. A purchase while
// premium is still active extends the window end by another period instead of
// restarting the clock, and the unused quota carries over on top of the new
// grant, so consecutive purchases accumulate both validity and translations.
// Only the payment flow calls this; the ledger never promotes a user on its
// own.
func (l *Ledger) ActivatePremium(ctx context.Context, userID int64, purchasedAt time.Time) (Activation, error) {
	var act Activation
	err := l.store.InTx(ctx, func(tx *sqlx.Tx) error {
		rec, err := l.loadOrInit(ctx, tx, userID)
		if err != nil {
			return err
		}
		l.rollover(rec)

		purchasedAt = purchasedAt.UTC()
		if rec.PremiumActive(purchasedAt) {
			end := rec.PremiumWindowEnd.Add(config.PremiumPeriod)
			rec.PremiumWindowEnd = &end
			rec.PremiumLimit = translationsLeft(rec) + config.PremiumTranslations
			act.Extended = true
		} else {
			start := purchasedAt
			end := purchasedAt.Add(config.PremiumPeriod)
			rec.Tier = domain.TierPremium
			rec.PremiumWindowStart = &start
			rec.PremiumWindowEnd = &end
			rec.PremiumLimit = config.PremiumTranslations
		}
		rec.PremiumUsed = 0

		act.WindowStart = *rec.PremiumWindowStart
		act.WindowEnd = *rec.PremiumWindowEnd
		act.TranslationsLeft = rec.PremiumLimit

		return l.store.UpsertLedgerTx(ctx, tx, rec)
	})
	if err != nil {
		return Activation{}, storageErr("activate premium", err)
	}
	slog.Info("premium activated",
		"user_id", userID,
		"window_end", act.WindowEnd,
		"extended", act.Extended,
	)
	return act, nil
}

// RemainingLimits projects the user's current quota without mutating state.
// Rollover logic is applied to an in-memory copy only.
func (l *Ledger) RemainingLimits(ctx context.Context, userID int64) (Limits, error) {
	rec, err := l.store.GetLedger(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Lazily-created users have the full free quota.
		now := l.now().UTC()
		return Limits{
			Tier:             domain.TierFree,
			TranslationsLeft: config.FreeTranslations,
			TokensLeft:       config.DailyTokenLimit,
			ResetsAt:         now.Add(config.FreePeriod),
		}, nil
	}
	if err != nil {
		return Limits{}, storageErr("remaining limits", err)
	}
	if !rec.Valid() {
		rec = l.freshRecord(userID)
	}
	l.rollover(rec)

	tokensLeft := config.DailyTokenLimit - rec.DailyTokens
	if tokensLeft < 0 {
		tokensLeft = 0
	}
	return Limits{
		Tier:             rec.Tier,
		TranslationsLeft: translationsLeft(rec),
		TokensLeft:       tokensLeft,
		ResetsAt:         windowEnd(rec),
	}, nil
}

// loadOrInit loads the user's row, creating a fresh free record on first
// interaction. A row with corrupt counters or timestamps is reinitialized
// rather than failing the request.
func (l *Ledger) loadOrInit(ctx context.Context, tx *sqlx.Tx, userID int64) (*domain.UsageRecord, error) {
	rec, err := l.store.GetLedgerTx(ctx, tx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		rec = l.freshRecord(userID)
		if err := l.store.UpsertLedgerTx(ctx, tx, rec); err != nil {
			return nil, err
		}
		slog.Info("ledger record created", "user_id", userID)
		return rec, nil
	}
	if err != nil || !rec.Valid() {
		if err == nil {
			slog.Warn("corrupt ledger record reinitialized", "user_id", userID)
		} else {
			slog.Warn("unreadable ledger record reinitialized", "user_id", userID, "error", err)
		}
		rec = l.freshRecord(userID)
		if err := l.store.UpsertLedgerTx(ctx, tx, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (l *Ledger) freshRecord(userID int64) *domain.UsageRecord {
	now := l.now().UTC()
	return &domain.UsageRecord{
		UserID:          userID,
		Tier:            domain.TierFree,
		FreeWindowStart: now,
		DailyResetDate:  utcDate(now),
	}
}

// rollover applies window resets in place and reports whether the record
// changed: the daily token counter resets when the stored date is stale, an
// expired premium subscription reverts the user to a fresh free window, and a
// free window older than its period restarts with a zero count.
func (l *Ledger) rollover(rec *domain.UsageRecord) bool {
	now := l.now().UTC()
	changed := false

	if rec.DailyResetDate != utcDate(now) {
		rec.DailyTokens = 0
		rec.DailyResetDate = utcDate(now)
		changed = true
	}

	if rec.Tier == domain.TierPremium && !rec.PremiumActive(now) {
		rec.Tier = domain.TierFree
		rec.PremiumWindowStart = nil
		rec.PremiumWindowEnd = nil
		rec.PremiumUsed = 0
		rec.PremiumLimit = 0
		rec.FreeWindowStart = now
		rec.FreeUsed = 0
		changed = true
	}

	if rec.Tier == domain.TierFree && now.Sub(rec.FreeWindowStart) > config.FreePeriod {
		rec.FreeWindowStart = now
		rec.FreeUsed = 0
		changed = true
	}

	return changed
}

func translationsLeft(rec *domain.UsageRecord) int {
	var left int
	switch rec.Tier {
	case domain.TierPremium:
		left = rec.PremiumLimit - rec.PremiumUsed
	default:
		left = config.FreeTranslations - rec.FreeUsed
	}
	if left < 0 {
		left = 0
	}
	return left
}

// windowEnd is when the active tier's translation quota resets.
func windowEnd(rec *domain.UsageRecord) time.Time {
	if rec.Tier == domain.TierPremium && rec.PremiumWindowEnd != nil {
		return *rec.PremiumWindowEnd
	}
	return rec.FreeWindowStart.Add(config.FreePeriod)
}

func tokenCost(inputTokens, outputTokens int) decimal.Decimal {
	million := decimal.NewFromInt(1_000_000)
	in := decimal.NewFromInt(int64(inputTokens)).Div(million).Mul(config.GeminiInputPricePerM)
	out := decimal.NewFromInt(int64(outputTokens)).Div(million).Mul(config.GeminiOutputPricePerM)
	return in.Add(out).Round(6)
}

func utcDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func nextUTCMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
}

func firstOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func firstOfNextMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
