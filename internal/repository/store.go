package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ulugbek-dev/tarjimon/internal/domain"
)

// Store wraps the process-wide SQLite handle with the queries the services
// need. Transactional methods take *sqlx.Tx and are composed via InTx.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// InTx runs fn inside a transaction, committing on nil and rolling back on
// error. Transactions are kept short: no network calls happen inside fn.
func (s *Store) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// timeLayout is a fixed-width RFC 3339 form. Stored timestamps are compared
// as strings, and time.RFC3339Nano trims trailing zeros, which breaks
// lexicographic ordering around fraction-free boundaries.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type ledgerRow struct {
	UserID             int64          `db:"user_id"`
	Tier               string         `db:"tier"`
	FreeWindowStart    string         `db:"free_window_start"`
	FreeUsed           int            `db:"free_used"`
	PremiumWindowStart sql.NullString `db:"premium_window_start"`
	PremiumWindowEnd   sql.NullString `db:"premium_window_end"`
	PremiumUsed        int            `db:"premium_used"`
	PremiumLimit       int            `db:"premium_limit"`
	DailyTokens        int            `db:"daily_tokens"`
	DailyResetDate     string         `db:"daily_reset_date"`
	CreatedAt          string         `db:"created_at"`
	UpdatedAt          string         `db:"updated_at"`
}

func (r ledgerRow) toRecord() (*domain.UsageRecord, error) {
	freeStart, err := time.Parse(time.RFC3339Nano, r.FreeWindowStart)
	if err != nil {
		return nil, fmt.Errorf("parse free window start: %w", err)
	}
	rec := &domain.UsageRecord{
		UserID:          r.UserID,
		Tier:            domain.Tier(r.Tier),
		FreeWindowStart: freeStart,
		FreeUsed:        r.FreeUsed,
		PremiumUsed:     r.PremiumUsed,
		PremiumLimit:    r.PremiumLimit,
		DailyTokens:     r.DailyTokens,
		DailyResetDate:  r.DailyResetDate,
	}
	if r.PremiumWindowStart.Valid {
		t, err := time.Parse(time.RFC3339Nano, r.PremiumWindowStart.String)
		if err != nil {
			return nil, fmt.Errorf("parse premium window start: %w", err)
		}
		rec.PremiumWindowStart = &t
	}
	if r.PremiumWindowEnd.Valid {
		t, err := time.Parse(time.RFC3339Nano, r.PremiumWindowEnd.String)
		if err != nil {
			return nil, fmt.Errorf("parse premium window end: %w", err)
		}
		rec.PremiumWindowEnd = &t
	}
	if t, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
		rec.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, r.UpdatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

// GetLedgerTx loads a user's ledger row for update within tx. Returns
// domain.ErrUserNotFound when no row exists. A row that cannot be parsed is
// reported so the caller can reinitialize it.
func (s *Store) GetLedgerTx(ctx context.Context, tx *sqlx.Tx, userID int64) (*domain.UsageRecord, error) {
	var row ledgerRow
	err := tx.GetContext(ctx, &row, `
		SELECT user_id, tier, free_window_start, free_used,
		       premium_window_start, premium_window_end, premium_used, premium_limit,
		       daily_tokens, daily_reset_date, created_at, updated_at
		FROM usage_ledger WHERE user_id = ?`, userID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger row: %w", err)
	}
	return row.toRecord()
}

// GetLedger is the read-only variant used by non-mutating projections.
func (s *Store) GetLedger(ctx context.Context, userID int64) (*domain.UsageRecord, error) {
	var row ledgerRow
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, tier, free_window_start, free_used,
		       premium_window_start, premium_window_end, premium_used, premium_limit,
		       daily_tokens, daily_reset_date, created_at, updated_at
		FROM usage_ledger WHERE user_id = ?`, userID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger row: %w", err)
	}
	return row.toRecord()
}

// UpsertLedgerTx writes the full ledger row, creating it when missing.
func (s *Store) UpsertLedgerTx(ctx context.Context, tx *sqlx.Tx, rec *domain.UsageRecord) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO usage_ledger
		(user_id, tier, free_window_start, free_used,
		 premium_window_start, premium_window_end, premium_used, premium_limit,
		 daily_tokens, daily_reset_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			tier = excluded.tier,
			free_window_start = excluded.free_window_start,
			free_used = excluded.free_used,
			premium_window_start = excluded.premium_window_start,
			premium_window_end = excluded.premium_window_end,
			premium_used = excluded.premium_used,
			premium_limit = excluded.premium_limit,
			daily_tokens = excluded.daily_tokens,
			daily_reset_date = excluded.daily_reset_date,
			updated_at = excluded.updated_at`,
		rec.UserID, string(rec.Tier), rec.FreeWindowStart.UTC().Format(timeLayout), rec.FreeUsed,
		formatTimePtr(rec.PremiumWindowStart), formatTimePtr(rec.PremiumWindowEnd), rec.PremiumUsed, rec.PremiumLimit,
		rec.DailyTokens, rec.DailyResetDate, now, now)
	if err != nil {
		return fmt.Errorf("upsert ledger row: %w", err)
	}
	return nil
}

// TokenUsage is one audit row of AI token consumption.
type TokenUsage struct {
	UserID       int64
	ServiceName  string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CostUSD      decimal.Decimal
	ContentType  string
}

func (s *Store) InsertTokenUsageTx(ctx context.Context, tx *sqlx.Tx, u TokenUsage) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO api_token_usage
		(timestamp_utc, user_id, service_name, input_tokens, output_tokens, token_count, cost_usd, content_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(timeLayout), u.UserID, u.ServiceName,
		u.InputTokens, u.OutputTokens, u.TotalTokens, u.CostUSD.String(), u.ContentType)
	if err != nil {
		return fmt.Errorf("insert token usage: %w", err)
	}
	return nil
}

// MonthlyTokenTotalTx sums recorded tokens across all users since the given
// instant, normally the first of the current month (UTC).
func (s *Store) MonthlyTokenTotalTx(ctx context.Context, tx *sqlx.Tx, since time.Time) (int64, error) {
	var total int64
	err := tx.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(token_count), 0) FROM api_token_usage WHERE timestamp_utc >= ?`,
		since.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("sum monthly tokens: %w", err)
	}
	return total, nil
}

// Payment is one confirmed Telegram Stars payment.
type Payment struct {
	UserID            int64
	TelegramPaymentID string
	AmountStars       int
	Plan              string
	Days              int
}

// InsertPayment records a confirmed payment. The unique constraint on
// telegram_payment_id makes processing idempotent.
func (s *Store) InsertPayment(ctx context.Context, p Payment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_history (user_id, telegram_payment_id, amount_stars, plan, days, timestamp_utc)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.UserID, p.TelegramPaymentID, p.AmountStars, p.Plan, p.Days,
		time.Now().UTC().Format(timeLayout))
	if sqliteErr, ok := err.(sqlite3.Error); ok && sqliteErr.Code == sqlite3.ErrConstraint {
		return domain.ErrPaymentAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// PaymentExists reports whether a Telegram payment id has been processed.
func (s *Store) PaymentExists(ctx context.Context, telegramPaymentID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM payment_history WHERE telegram_payment_id = ?`, telegramPaymentID)
	if err != nil {
		return false, fmt.Errorf("check payment: %w", err)
	}
	return count > 0, nil
}

// InsertFeedback stores a user feedback message.
func (s *Store) InsertFeedback(ctx context.Context, userID int64, username, firstName, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (user_id, username, first_name, message_text, timestamp_utc)
		VALUES (?, ?, ?, ?, ?)`,
		userID, username, firstName, text, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}
