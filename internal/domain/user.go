package domain

import "time"

// Tier is the subscription level governing quota size.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// UsageRecord is the per-user row of the usage ledger. Exactly one tier is
// active at a time; the premium window fields are meaningful only while
// Tier == TierPremium.
type UsageRecord struct {
	UserID int64
	Tier   Tier

	// Rolling 30-day free window, started on first use.
	FreeWindowStart time.Time
	FreeUsed        int

	// Fixed premium subscription window set by the payment flow. The limit
	// accumulates across purchases: unused quota carries over when an active
	// subscription is extended.
	PremiumWindowStart *time.Time
	PremiumWindowEnd   *time.Time
	PremiumUsed        int
	PremiumLimit       int

	// Daily token counter, reset when DailyResetDate differs from today (UTC).
	DailyTokens    int
	DailyResetDate string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PremiumActive reports whether the premium window covers the given instant.
func (r *UsageRecord) PremiumActive(now time.Time) bool {
	if r.Tier != TierPremium || r.PremiumWindowEnd == nil {
		return false
	}
	return r.PremiumWindowEnd.After(now)
}

// Valid reports whether the record's counters are in a sane state. Corrupt
// rows are reinitialized by the ledger instead of crashing the request.
func (r *UsageRecord) Valid() bool {
	if r.FreeUsed < 0 || r.PremiumUsed < 0 || r.PremiumLimit < 0 || r.DailyTokens < 0 {
		return false
	}
	if r.Tier != TierFree && r.Tier != TierPremium {
		return false
	}
	if r.FreeWindowStart.IsZero() || r.DailyResetDate == "" {
		return false
	}
	if r.Tier == TierPremium && (r.PremiumWindowStart == nil || r.PremiumWindowEnd == nil) {
		return false
	}
	return true
}
