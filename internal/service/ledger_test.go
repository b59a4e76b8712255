package service

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tarjimon "github.com/ulugbek-dev/tarjimon"
	"github.com/ulugbek-dev/tarjimon/internal/config"
	"github.com/ulugbek-dev/tarjimon/internal/domain"
	"github.com/ulugbek-dev/tarjimon/internal/repository"
)

func newTestLedger(t *testing.T) (*Ledger, *repository.Store, *sqlx.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := repository.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrationsFS, err := fs.Sub(tarjimon.MigrationsFS, "migrations")
	require.NoError(t, err)
	require.NoError(t, repository.RunMigrations(path, migrationsFS))

	store := repository.NewStore(db)
	return NewLedger(store), store, db
}

func fixedClock(l *Ledger, at time.Time) {
	l.now = func() time.Time { return at }
}

func TestCheckRateLimitFreshUser(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	dec, err := l.CheckRateLimit(ctx, 42)
	require.NoError(t, err)

	assert.True(t, dec.Allowed)
	assert.Equal(t, domain.TierFree, dec.Tier)
	assert.Equal(t, config.FreeTranslations, dec.TranslationsLeft)
	assert.Equal(t, config.DailyTokenLimit, dec.TokensLeft)
}

func TestFreeQuotaExhaustion(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(l, start)

	for i := 0; i < config.FreeTranslations; i++ {
		dec, err := l.CheckRateLimit(ctx, 42)
		require.NoError(t, err)
		require.True(t, dec.Allowed, "request %d should be allowed", i+1)
		require.NoError(t, l.RecordUsage(ctx, 42, Usage{ServiceName: "gemini", InputTokens: 50, OutputTokens: 50, ContentType: "text"}))
	}

	dec, err := l.CheckRateLimit(ctx, 42)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonTranslationLimit, dec.Reason)
	assert.Equal(t, 0, dec.TranslationsLeft)
	assert.Equal(t, start.Add(config.FreePeriod), dec.ResetsAt)
}

func TestDailyTokenLimit(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(l, at)

	// 19900 used, the next call reports 200 more. The increment is applied
	// unconditionally even though it overshoots the cap.
	require.NoError(t, l.RecordUsage(ctx, 7, Usage{ServiceName: "gemini", InputTokens: 10000, OutputTokens: 9900}))

	dec, err := l.CheckRateLimit(ctx, 7)
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	assert.Equal(t, 100, dec.TokensLeft)

	require.NoError(t, l.RecordUsage(ctx, 7, Usage{ServiceName: "gemini", InputTokens: 100, OutputTokens: 100}))

	dec, err = l.CheckRateLimit(ctx, 7)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonDailyTokenLimit, dec.Reason)
	assert.Equal(t, 0, dec.TokensLeft)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), dec.ResetsAt)
}

func TestDailyTokensRollOverAtMidnight(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	fixedClock(l, time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC))

	require.NoError(t, l.RecordUsage(ctx, 7, Usage{InputTokens: config.DailyTokenLimit, ServiceName: "gemini"}))

	dec, err := l.CheckRateLimit(ctx, 7)
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Equal(t, ReasonDailyTokenLimit, dec.Reason)

	fixedClock(l, time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC))

	dec, err = l.CheckRateLimit(ctx, 7)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, config.DailyTokenLimit, dec.TokensLeft)
}

func TestFreeWindowRestartsAfterPeriod(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(l, start)

	for i := 0; i < config.FreeTranslations; i++ {
		require.NoError(t, l.RecordUsage(ctx, 42, Usage{ServiceName: "gemini", InputTokens: 10}))
	}
	dec, err := l.CheckRateLimit(ctx, 42)
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	later := start.Add(31 * 24 * time.Hour)
	fixedClock(l, later)

	dec, err = l.CheckRateLimit(ctx, 42)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, config.FreeTranslations, dec.TranslationsLeft)
	// The new window starts at the rollover moment.
	assert.Equal(t, later.Add(config.FreePeriod), dec.ResetsAt)
}

func TestActivatePremium(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	purchasedAt := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	fixedClock(l, purchasedAt)

	act, err := l.ActivatePremium(ctx, 99, purchasedAt)
	require.NoError(t, err)

	assert.False(t, act.Extended)
	assert.Equal(t, purchasedAt, act.WindowStart)
	assert.Equal(t, purchasedAt.Add(config.PremiumPeriod), act.WindowEnd)
	assert.Equal(t, config.PremiumTranslations, act.TranslationsLeft)

	dec, err := l.CheckRateLimit(ctx, 99)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, domain.TierPremium, dec.Tier)
	assert.Equal(t, config.PremiumTranslations, dec.TranslationsLeft)
}

func TestActivatePremiumExtendsActiveWindow(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	first := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	fixedClock(l, first)

	act1, err := l.ActivatePremium(ctx, 99, first)
	require.NoError(t, err)

	// Spend part of the quota, then buy again 10 days in.
	for i := 0; i < 10; i++ {
		require.NoError(t, l.RecordUsage(ctx, 99, Usage{ServiceName: "gemini", InputTokens: 10}))
	}

	second := first.Add(10 * 24 * time.Hour)
	fixedClock(l, second)

	act2, err := l.ActivatePremium(ctx, 99, second)
	require.NoError(t, err)

	assert.True(t, act2.Extended)
	// Validity accumulates: the end moves out by a full period from the
	// previous end, not from the second purchase.
	assert.Equal(t, act1.WindowEnd.Add(config.PremiumPeriod), act2.WindowEnd)
	assert.Equal(t, act1.WindowStart, act2.WindowStart)

	// Quota accumulates too: the 40 unused translations stack with the new
	// grant of 50.
	assert.Equal(t, 90, act2.TranslationsLeft)

	dec, err := l.CheckRateLimit(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 90, dec.TranslationsLeft)

	limits, err := l.RemainingLimits(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 90, limits.TranslationsLeft)
}

func TestExpiredPremiumRevertsToFree(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	purchasedAt := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	fixedClock(l, purchasedAt)

	_, err := l.ActivatePremium(ctx, 99, purchasedAt)
	require.NoError(t, err)
	require.NoError(t, l.RecordUsage(ctx, 99, Usage{ServiceName: "gemini", InputTokens: 10}))

	expired := purchasedAt.Add(config.PremiumPeriod).Add(time.Hour)
	fixedClock(l, expired)

	dec, err := l.CheckRateLimit(ctx, 99)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, domain.TierFree, dec.Tier)
	assert.Equal(t, config.FreeTranslations, dec.TranslationsLeft, "expiry grants a fresh free window")
}

func TestExpiredPremiumRepurchaseStartsFresh(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	first := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	fixedClock(l, first)

	_, err := l.ActivatePremium(ctx, 99, first)
	require.NoError(t, err)

	second := first.Add(60 * 24 * time.Hour)
	fixedClock(l, second)

	act, err := l.ActivatePremium(ctx, 99, second)
	require.NoError(t, err)
	assert.False(t, act.Extended)
	assert.Equal(t, second, act.WindowStart)
	assert.Equal(t, second.Add(config.PremiumPeriod), act.WindowEnd)
	assert.Equal(t, config.PremiumTranslations, act.TranslationsLeft,
		"nothing carries over across a lapsed window")
}

func TestMonthlyBudgetDeniesEveryone(t *testing.T) {
	l, _, db := newTestLedger(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fixedClock(l, at)

	// The system-wide budget is the sum of all audit rows this month.
	_, err := db.ExecContext(ctx, `
		INSERT INTO api_token_usage (timestamp_utc, user_id, service_name, token_count)
		VALUES (?, ?, ?, ?)`,
		at.Add(-24*time.Hour).Format(time.RFC3339Nano), 1, "gemini", config.MonthlySystemTokens)
	require.NoError(t, err)

	dec, err := l.CheckRateLimit(ctx, 42)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonMonthlyBudget, dec.Reason)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), dec.ResetsAt)

	// Personal quota is untouched; last month's usage does not count.
	fixedClock(l, time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))
	dec, err = l.CheckRateLimit(ctx, 42)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestConcurrentRecordsNeverExceedQuota(t *testing.T) {
	l, store, _ := newTestLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := l.CheckRateLimit(ctx, 42)
			if err != nil || !dec.Allowed {
				return
			}
			l.RecordUsage(ctx, 42, Usage{ServiceName: "gemini", InputTokens: 10})
		}()
	}
	wg.Wait()

	rec, err := store.GetLedger(ctx, 42)
	require.NoError(t, err)
	assert.LessOrEqual(t, rec.FreeUsed, config.FreeTranslations,
		"racing requests must not push the count past the cap")
}

func TestCorruptRecordSelfHeals(t *testing.T) {
	l, _, db := newTestLedger(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		INSERT INTO usage_ledger
		(user_id, tier, free_window_start, free_used, premium_used, daily_tokens, daily_reset_date, created_at, updated_at)
		VALUES (42, 'gold', 'not-a-timestamp', -3, 0, 0, '2026-03-01', '', '')`)
	require.NoError(t, err)

	dec, err := l.CheckRateLimit(ctx, 42)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, domain.TierFree, dec.Tier)
	assert.Equal(t, config.FreeTranslations, dec.TranslationsLeft)
}

func TestRemainingLimitsUnknownUser(t *testing.T) {
	l, _, _ := newTestLedger(t)

	limits, err := l.RemainingLimits(context.Background(), 12345)
	require.NoError(t, err)

	assert.Equal(t, domain.TierFree, limits.Tier)
	assert.Equal(t, config.FreeTranslations, limits.TranslationsLeft)
	assert.Equal(t, config.DailyTokenLimit, limits.TokensLeft)
}

func TestRemainingLimitsDoesNotMutate(t *testing.T) {
	l, store, _ := newTestLedger(t)
	ctx := context.Background()
	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(l, day1)

	require.NoError(t, l.RecordUsage(ctx, 42, Usage{ServiceName: "gemini", InputTokens: 5000}))

	// Next day the projection shows rolled-over values...
	fixedClock(l, day1.Add(24*time.Hour))
	limits, err := l.RemainingLimits(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, config.DailyTokenLimit, limits.TokensLeft)

	// ...but the stored row still carries yesterday's state.
	rec, err := store.GetLedger(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 5000, rec.DailyTokens)
	assert.Equal(t, "2026-03-01", rec.DailyResetDate)
}

func TestRecordUsageCountsOnlyActiveTier(t *testing.T) {
	l, store, _ := newTestLedger(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	fixedClock(l, at)

	_, err := l.ActivatePremium(ctx, 99, at)
	require.NoError(t, err)
	require.NoError(t, l.RecordUsage(ctx, 99, Usage{ServiceName: "gemini", InputTokens: 10}))

	rec, err := store.GetLedger(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.PremiumUsed)
	assert.Equal(t, 0, rec.FreeUsed)
}
