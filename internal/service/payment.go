package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ulugbek-dev/tarjimon/internal/config"
	"github.com/ulugbek-dev/tarjimon/internal/domain"
	"github.com/ulugbek-dev/tarjimon/internal/repository"
)

// PaymentService turns confirmed Telegram Stars payments into premium
// activations. Processing is idempotent on the Telegram payment charge id,
// so a redelivered update can never grant a second activation.
type PaymentService struct {
	store  *repository.Store
	ledger *Ledger
}

func NewPaymentService(store *repository.Store, ledger *Ledger) *PaymentService {
	return &PaymentService{store: store, ledger: ledger}
}

// ProcessSuccessfulPayment records the payment and activates (or extends)
// the premium subscription. Returns domain.ErrPaymentAlreadyProcessed when
// this charge id has been seen before.
func (s *PaymentService) ProcessSuccessfulPayment(ctx context.Context, userID int64, telegramPaymentID string, amountStars int) (Activation, error) {
	exists, err := s.store.PaymentExists(ctx, telegramPaymentID)
	if err != nil {
		return Activation{}, storageErr("process payment", err)
	}
	if exists {
		return Activation{}, domain.ErrPaymentAlreadyProcessed
	}

	err = s.store.InsertPayment(ctx, repository.Payment{
		UserID:            userID,
		TelegramPaymentID: telegramPaymentID,
		AmountStars:       amountStars,
		Plan:              config.PremiumPlan,
		Days:              config.PremiumPeriodDays,
	})
	if errors.Is(err, domain.ErrPaymentAlreadyProcessed) {
		return Activation{}, err
	}
	if err != nil {
		return Activation{}, storageErr("process payment", err)
	}

	act, err := s.ledger.ActivatePremium(ctx, userID, s.ledger.now())
	if err != nil {
		// The payment is logged but the subscription is not active; surface
		// this loudly so support can reconcile from payment_history.
		slog.Error("payment recorded but activation failed",
			"user_id", userID,
			"telegram_payment_id", telegramPaymentID,
			"error", err,
		)
		return Activation{}, fmt.Errorf("activate after payment: %w", err)
	}

	slog.Info("payment processed",
		"user_id", userID,
		"telegram_payment_id", telegramPaymentID,
		"stars", amountStars,
	)
	return act, nil
}
