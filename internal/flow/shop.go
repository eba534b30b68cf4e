package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	apperrors "github.com/rabota-krsk/rabota-bot/internal/errors"
	"github.com/rabota-krsk/rabota-bot/internal/state"
	"github.com/rabota-krsk/rabota-bot/pkg/metrics"
)

const paymentPayloadPrefix = "payment_"

// showBalance prints the current balance with a shortcut into the shop.
func (f *Flow) showBalance(ctx context.Context, session *state.Session) error {
	balance, err := f.ledger.Balance(ctx, session.UserID)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}

	return f.msgr.SendMenu(ctx, session.UserID,
		fmt.Sprintf("Ваш баланс: %d рублей.", balance.Rubles()),
		Menu{
			{{Label: btnShop, Action: ActionMenuShop}},
			{{Label: btnBack, Action: ActionMainMenu}},
		},
	)
}

// showShop offers the two top-up scenarios.
func (f *Flow) showShop(ctx context.Context, session *state.Session) error {
	balance, err := f.ledger.Balance(ctx, session.UserID)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}

	return f.msgr.SendMenu(ctx, session.UserID,
		fmt.Sprintf("Ваш баланс: %d рублей\n%s", balance.Rubles(), msgShopPrompt),
		shopMenu(),
	)
}

// startTopUp shows the price list for the chosen service and asks for the
// top-up amount. Also the landing point for balance-gate redirects.
func (f *Flow) startTopUp(ctx context.Context, session *state.Session, pubType domain.PublicationType) error {
	if pubType.IsJob() {
		session.ShopService = "job"
	} else {
		session.ShopService = "advertisement"
	}

	if err := f.fsm.Advance(ctx, session, state.StateEnteringPaymentAmount); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID,
		fmt.Sprintf("%s\n\n%s", msgEnterPaymentAmount, pricingText(pubType)),
		Menu{{{Label: btnBack, Action: ActionMainMenu}}},
	)
}

// handlePaymentAmount validates the entered amount and shows the pay button.
func (f *Flow) handlePaymentAmount(ctx context.Context, session *state.Session, text string) error {
	rubles, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || rubles <= 0 {
		return apperrors.NewValidationError("Некорректный формат суммы. Введите числовое значение")
	}

	if err := f.fsm.Advance(ctx, session, state.StateConfirmingPayment); err != nil {
		return err
	}

	backAction := ActionShopAds
	if session.ShopService == "job" {
		backAction = ActionShopJobs
	}

	return f.msgr.SendMenu(ctx, session.UserID,
		fmt.Sprintf("Оплата %d рублей", rubles),
		Menu{
			{{Label: btnGoToPayment, Action: fmt.Sprintf("%s%d", ActionPayPrefix, rubles)}},
			{{Label: btnBack, Action: backAction}},
		},
	)
}

// initiatePayment records a pending payment and sends the provider invoice.
func (f *Flow) initiatePayment(ctx context.Context, session *state.Session, raw string) error {
	rubles, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || rubles <= 0 {
		return apperrors.NewStateError(fmt.Sprintf("bad payment amount %q", raw))
	}

	amount := domain.Rub(rubles)

	payment := &domain.Payment{
		UserID: session.UserID,
		Amount: amount,
		Status: domain.PaymentPending,
		Method: "telegram_payments",
	}
	if err := f.payments.Create(ctx, payment); err != nil {
		return apperrors.NewDatabaseError(err)
	}

	payload := fmt.Sprintf("%s%d", paymentPayloadPrefix, payment.ID)

	if err := f.gateway.SendInvoice(ctx, session.UserID, amount, payload); err != nil {
		f.log.Error("failed to send invoice",
			"user_id", session.UserID, "payment_id", payment.ID, "error", err)

		if failErr := f.payments.Fail(ctx, payment.ID); failErr != nil {
			f.log.Error("failed to mark payment failed", "payment_id", payment.ID, "error", failErr)
		}

		return f.msgr.SendMenu(ctx, session.UserID,
			"❌ Ошибка при создании платежа. Попробуйте позже.", homeMenu())
	}

	return nil
}

// ValidPayload reports whether a pre-checkout payload belongs to this bot.
func ValidPayload(payload string) bool {
	return strings.HasPrefix(payload, paymentPayloadPrefix)
}

// CompleteTopUp finishes a successful provider payment: the payment record
// is completed, the balance credited and the user notified.
func (f *Flow) CompleteTopUp(ctx context.Context, userID int64, payload, transactionID string, amount domain.Kopecks) error {
	return f.fsm.WithLock(ctx, userID, func(ctx context.Context) error {
		return f.completeTopUp(ctx, userID, payload, transactionID, amount)
	})
}

func (f *Flow) completeTopUp(ctx context.Context, userID int64, payload, transactionID string, amount domain.Kopecks) error {
	paymentID, err := strconv.ParseInt(strings.TrimPrefix(payload, paymentPayloadPrefix), 10, 64)
	if err != nil {
		return apperrors.NewStateError(fmt.Sprintf("bad payment payload %q", payload))
	}

	if err := f.payments.Complete(ctx, paymentID, transactionID, f.now()); err != nil {
		metrics.RecordLedgerOperation("credit", "failed")
		return f.msgr.Send(ctx, userID,
			"❌ Произошла ошибка при обработке платежа. Обратитесь в поддержку.")
	}

	if err := f.ledger.Credit(ctx, userID, amount); err != nil {
		metrics.RecordLedgerOperation("credit", "failed")
		return apperrors.NewDatabaseError(err)
	}
	metrics.RecordLedgerOperation("credit", "ok")

	balance, err := f.ledger.Balance(ctx, userID)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}

	if err := f.fsm.ClearSession(ctx, userID); err != nil {
		return err
	}

	f.log.Info("top-up completed",
		"user_id", userID, "payment_id", paymentID, "amount", int64(amount))

	return f.msgr.SendMenu(ctx, userID,
		fmt.Sprintf("Оплата прошла успешно, вам зачислено %d рублей.\nВаш баланс: %d рублей",
			amount.Rubles(), balance.Rubles()),
		Menu{{{Label: btnCreatePost, Action: ActionMainMenu}}},
	)
}

// FailTopUp notifies the user about a payment that did not go through and
// resets the dialog.
func (f *Flow) FailTopUp(ctx context.Context, userID int64) error {
	return f.fsm.WithLock(ctx, userID, func(ctx context.Context) error {
		if err := f.fsm.ClearSession(ctx, userID); err != nil {
			return err
		}

		return f.msgr.SendMenu(ctx, userID, msgPaymentNotFound, homeMenu())
	})
}
