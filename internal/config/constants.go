package config

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// Free tier quota
	FreeTranslations = 10
	FreePeriodDays   = 30
	FreePeriod       = FreePeriodDays * 24 * time.Hour

	// Premium tier quota
	PremiumTranslations = 50
	PremiumPeriodDays   = 30
	PremiumPeriod       = PremiumPeriodDays * 24 * time.Hour
	PremiumPriceStars   = 350

	// Token limits
	DailyTokenLimit     = 20_000
	MonthlySystemTokens = 5_000_000

	// Request rate limit (per minute, per chat)
	RequestsPerMinute = 10

	// Input limits
	MaxTextLength  = 50_000
	MaxImageSizeMB = 10

	// Token estimation: 1 token is roughly 4 characters, plus 10% overhead
	TokenEstimationRatio = 4

	// AI request timeout
	RequestTimeout = 120 * time.Second

	// Limiter entries idle longer than this are pruned
	LimiterEntryTTL     = time.Hour
	LimiterCleanupEvery = 10 * time.Minute

	// Stars subscription plan identifier stored with payments
	PremiumPlan = "premium_30_days"
)

// Gemini 2.5 Pro pricing per 1M tokens (USD).
var (
	GeminiInputPricePerM  = decimal.RequireFromString("1.25")
	GeminiOutputPricePerM = decimal.RequireFromString("10.00")
)
