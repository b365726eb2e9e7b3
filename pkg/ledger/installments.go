package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/events"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/mcclellann/fredLedger/pkg/store"
	"github.com/shopspring/decimal"
)

type InstallmentParams struct {
	CostCenterID      uuid.UUID
	UserID            uuid.UUID
	WalletID          uuid.UUID
	CreditCardID      *uuid.UUID
	CategoryID        *uuid.UUID
	Description       string
	TotalAmount       decimal.Decimal
	TotalInstallments int
	StartDate         time.Time
}

// InstallmentPlan is an installment with its payment schedule. Charge is set when the purchase went
// on a credit card.
type InstallmentPlan struct {
	Installment *models.Installment          `json:"installment"`
	Payments    []*models.InstallmentPayment `json:"payments"`
	Charge      *models.Transaction          `json:"charge,omitempty"`
}

// CreateInstallment splits a purchase into monthly payments. With a credit card the whole total is
// charged up front; a charge over the limit leaves no installment behind.
func (l *Ledger) CreateInstallment(ctx context.Context, p InstallmentParams) (*InstallmentPlan, error) {
	if p.TotalInstallments < MinInstallments || p.TotalInstallments > MaxInstallments {
		return nil, fmt.Errorf("%w: %d is outside %d..%d", ErrInvalidInstallmentCount, p.TotalInstallments, MinInstallments, MaxInstallments)
	}
	if err := validateAmount(p.TotalAmount); err != nil {
		return nil, err
	}
	if SplitAmount(p.TotalAmount, p.TotalInstallments)[0].IsZero() {
		return nil, fmt.Errorf("%w: %s cannot be split into %d payments", ErrInvalidAmount, money(p.TotalAmount), p.TotalInstallments)
	}
	desc, err := requireText("description", p.Description)
	if err != nil {
		return nil, err
	}
	now := l.now().UTC()
	start := p.StartDate
	if start.IsZero() {
		start = now
	}
	start = dateOnly(start)

	var plan InstallmentPlan
	err = l.storage.InTx(ctx, func(repo store.Repo) error {
		if _, err := l.walletIn(ctx, repo, p.CostCenterID, p.WalletID); err != nil {
			return err
		}
		if p.CreditCardID != nil {
			if _, err := l.cardIn(ctx, repo, p.CostCenterID, *p.CreditCardID); err != nil {
				return err
			}
		}
		if err := l.checkCategory(ctx, repo, p.CostCenterID, p.CategoryID, models.CategoryExpense); err != nil {
			return err
		}

		inst := &models.Installment{
			ID:                uuid.New(),
			CostCenterID:      p.CostCenterID,
			WalletID:          p.WalletID,
			CreditCardID:      p.CreditCardID,
			Description:       desc,
			TotalAmount:       p.TotalAmount,
			TotalInstallments: p.TotalInstallments,
			StartDate:         start,
			Status:            models.InstallmentActive,
			CreatedAt:         now,
		}
		if err := repo.CreateInstallment(ctx, inst); err != nil {
			return err
		}
		payments := buildSchedule(inst.ID, p.TotalAmount, p.TotalInstallments, start, now)
		for _, pay := range payments {
			if err := repo.CreateInstallmentPayment(ctx, pay); err != nil {
				return err
			}
		}
		plan.Installment, plan.Payments = inst, payments

		if p.CreditCardID == nil {
			return nil
		}
		card, err := balances{repo}.chargeCard(ctx, *p.CreditCardID, p.TotalAmount)
		if err != nil {
			return err
		}
		first, total := 1, p.TotalInstallments
		t := l.newTransaction(p.CostCenterID, p.UserID, models.TransactionTypeCreditExpense, desc, p.TotalAmount, start)
		t.CreditCardID = &card.ID
		t.CategoryID = p.CategoryID
		t.InstallmentID = &inst.ID
		t.CurrentInstallment = &first
		t.TotalInstallments = &total
		if err := repo.CreateTransaction(ctx, t); err != nil {
			return err
		}
		plan.Charge = t
		return nil
	})
	if err != nil {
		l.rejected(ctx, "create_installment", err, "wallet_id", p.WalletID, "amount", p.TotalAmount.String(),
			"installments", p.TotalInstallments)
		return nil, err
	}

	l.logger.InfoContext(ctx, "Installment created", "installment_id", plan.Installment.ID,
		"amount", money(p.TotalAmount), "installments", p.TotalInstallments, "charged_to_card", plan.Charge != nil)
	l.publish(ctx, events.TypeInstallmentCreated, p.CostCenterID, map[string]any{
		"installment_id":     plan.Installment.ID,
		"total_amount":       p.TotalAmount,
		"total_installments": p.TotalInstallments,
		"start_date":         start,
	})
	return &plan, nil
}

// PaymentResult reports a payment and its installment after MarkPaymentAsPaid. AlreadyPaid is set
// when the call changed nothing.
type PaymentResult struct {
	Payment     *models.InstallmentPayment `json:"payment"`
	Installment *models.Installment        `json:"installment"`
	AlreadyPaid bool                       `json:"already_paid"`
}

// MarkPaymentAsPaid records one payment of a schedule as paid and advances the installment, closing
// it with the last payment. Marking a paid payment again changes nothing. Balances are untouched;
// the money already moved when the purchase was recorded.
func (l *Ledger) MarkPaymentAsPaid(ctx context.Context, costCenterID, paymentID uuid.UUID) (*PaymentResult, error) {
	var result PaymentResult
	err := l.storage.InTx(ctx, func(repo store.Repo) error {
		pay, err := repo.GetInstallmentPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		inst, err := repo.GetInstallment(ctx, pay.InstallmentID)
		if err != nil {
			return err
		}
		if inst.CostCenterID != costCenterID {
			return fmt.Errorf("installment payment %s: %w", paymentID, ErrNotFound)
		}
		result.Payment, result.Installment = pay, inst
		if pay.Status == models.PaymentPaid {
			result.AlreadyPaid = true
			return nil
		}
		if inst.Status != models.InstallmentActive {
			return fmt.Errorf("%w: installment %s is %s", ErrInstallmentNotActive, inst.ID, inst.Status)
		}

		paidAt := l.now().UTC()
		if err := repo.UpdateInstallmentPayment(ctx, pay.ID, models.PaymentPaid, &paidAt); err != nil {
			return err
		}
		pay.Status, pay.PaidDate = models.PaymentPaid, &paidAt

		inst.PaidInstallments++
		if inst.PaidInstallments >= inst.TotalInstallments {
			inst.Status = models.InstallmentCompleted
		}
		return repo.UpdateInstallmentProgress(ctx, inst.ID, inst.PaidInstallments, inst.Status)
	})
	if err != nil {
		l.rejected(ctx, "mark_payment_paid", err, "payment_id", paymentID)
		return nil, err
	}
	if result.AlreadyPaid {
		l.logger.DebugContext(ctx, "Payment already paid", "payment_id", paymentID)
		return &result, nil
	}

	l.logger.InfoContext(ctx, "Installment payment paid", "payment_id", paymentID,
		"installment_id", result.Installment.ID, "paid", result.Installment.PaidInstallments,
		"total", result.Installment.TotalInstallments)
	data := map[string]any{
		"installment_id": result.Installment.ID,
		"payment_id":     paymentID,
		"payment_number": result.Payment.PaymentNumber,
		"amount":         result.Payment.Amount,
	}
	l.publish(ctx, events.TypeInstallmentPaid, costCenterID, data)
	if result.Installment.Status == models.InstallmentCompleted {
		l.publish(ctx, events.TypeInstallmentClosed, costCenterID, data)
	}
	return &result, nil
}

// ListUpcomingPayments returns unpaid payments of active installments due within the next withinDays
// days, earliest first. Overdue payments are included. withinDays <= 0 uses the configured default.
func (l *Ledger) ListUpcomingPayments(ctx context.Context, costCenterID uuid.UUID, withinDays int) ([]*models.InstallmentPayment, error) {
	if withinDays > MaxUpcomingDays {
		return nil, fmt.Errorf("%w: window of %d days exceeds %d", ErrInvalidInput, withinDays, MaxUpcomingDays)
	}
	if withinDays <= 0 {
		withinDays = l.upcomingDays
	}
	before := l.now().UTC().AddDate(0, 0, withinDays)
	return l.storage.ListUnpaidPaymentsDueBefore(ctx, costCenterID, before)
}

// CancelInstallment stops an active installment. Its unpaid payments stay as history and no longer
// show up as upcoming. Cancelling twice is a no-op.
func (l *Ledger) CancelInstallment(ctx context.Context, costCenterID, id uuid.UUID) (*models.Installment, error) {
	var inst *models.Installment
	changed := false
	err := l.storage.InTx(ctx, func(repo store.Repo) error {
		var err error
		inst, err = l.installmentIn(ctx, repo, costCenterID, id)
		if err != nil {
			return err
		}
		switch inst.Status {
		case models.InstallmentCancelled:
			return nil
		case models.InstallmentCompleted:
			return fmt.Errorf("%w: installment %s is already completed", ErrInstallmentNotActive, id)
		}
		inst.Status = models.InstallmentCancelled
		changed = true
		return repo.UpdateInstallmentProgress(ctx, inst.ID, inst.PaidInstallments, inst.Status)
	})
	if err != nil {
		l.rejected(ctx, "cancel_installment", err, "installment_id", id)
		return nil, err
	}
	if changed {
		l.logger.InfoContext(ctx, "Installment cancelled", "installment_id", id, "paid", inst.PaidInstallments)
		l.publish(ctx, events.TypeInstallmentCancel, costCenterID, map[string]any{"installment_id": id})
	}
	return inst, nil
}

// MarkOverduePayments flips pending payments whose due date is before today to overdue and returns
// how many changed. It only touches statuses.
func (l *Ledger) MarkOverduePayments(ctx context.Context) (int64, error) {
	today := dateOnly(l.now().UTC())
	n, err := l.storage.MarkPaymentsOverdue(ctx, today)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to mark overdue payments", "error", err)
		return 0, err
	}
	if n > 0 {
		l.logger.InfoContext(ctx, "Marked payments overdue", "count", n, "before", today.Format(time.DateOnly))
	}
	return n, nil
}

func (l *Ledger) GetInstallment(ctx context.Context, costCenterID, id uuid.UUID) (*InstallmentPlan, error) {
	inst, err := l.installmentIn(ctx, l.storage, costCenterID, id)
	if err != nil {
		return nil, err
	}
	payments, err := l.storage.ListInstallmentPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InstallmentPlan{Installment: inst, Payments: payments}, nil
}

// ListInstallments returns the cost center's installments. An empty status returns all of them.
func (l *Ledger) ListInstallments(ctx context.Context, costCenterID uuid.UUID, status models.InstallmentStatus) ([]*models.Installment, error) {
	switch status {
	case "", models.InstallmentActive, models.InstallmentCompleted, models.InstallmentCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown installment status %q", ErrInvalidInput, status)
	}
	return l.storage.ListInstallments(ctx, costCenterID, status)
}

func (l *Ledger) installmentIn(ctx context.Context, repo store.Repo, costCenterID, id uuid.UUID) (*models.Installment, error) {
	inst, err := repo.GetInstallment(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.CostCenterID != costCenterID {
		return nil, fmt.Errorf("installment %s: %w", id, ErrNotFound)
	}
	return inst, nil
}
