package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/models"
)

func (q *queries) CreateInstallment(ctx context.Context, i *models.Installment) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO installments (id, cost_center_id, wallet_id, credit_card_id, description, total_amount,
			total_installments, paid_installments, start_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.CostCenterID, i.WalletID, i.CreditCardID, i.Description, i.TotalAmount,
		i.TotalInstallments, i.PaidInstallments, utc(i.StartDate), i.Status, utc(i.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create installment: %w", err)
	}
	return nil
}

const installmentColumns = `id, cost_center_id, wallet_id, credit_card_id, description, total_amount,
	total_installments, paid_installments, start_date, status, created_at`

func scanInstallment(row scanner) (*models.Installment, error) {
	var i models.Installment
	var cardID uuid.NullUUID
	err := row.Scan(&i.ID, &i.CostCenterID, &i.WalletID, &cardID, &i.Description, &i.TotalAmount,
		&i.TotalInstallments, &i.PaidInstallments, &i.StartDate, &i.Status, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	i.CreditCardID = uuidPtr(cardID)
	return &i, nil
}

func (q *queries) GetInstallment(ctx context.Context, id uuid.UUID) (*models.Installment, error) {
	i, err := scanInstallment(q.db.QueryRowContext(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("installment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	return i, nil
}

// ListInstallments returns the cost center's installments, optionally only those with the given status.
func (q *queries) ListInstallments(ctx context.Context, costCenterID uuid.UUID, status models.InstallmentStatus) ([]*models.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE cost_center_id = ?`
	args := []any{costCenterID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY start_date ASC, created_at ASC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()

	var out []*models.Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment row: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return out, nil
}

func (q *queries) UpdateInstallmentProgress(ctx context.Context, id uuid.UUID, paid int, status models.InstallmentStatus) error {
	result, err := q.db.ExecContext(ctx,
		`UPDATE installments SET paid_installments = ?, status = ? WHERE id = ?`, paid, status, id)
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	return expectOne(result, "installment "+id.String())
}

func (q *queries) CreateInstallmentPayment(ctx context.Context, p *models.InstallmentPayment) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO installment_payments (id, installment_id, payment_number, amount, due_date, paid_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.InstallmentID, p.PaymentNumber, p.Amount, utc(p.DueDate), nullTime(p.PaidDate), p.Status, utc(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create installment payment: %w", err)
	}
	return nil
}

const paymentColumns = `p.id, p.installment_id, p.payment_number, p.amount, p.due_date, p.paid_date, p.status, p.created_at`

func scanPayment(row scanner) (*models.InstallmentPayment, error) {
	var p models.InstallmentPayment
	var paid sql.NullTime
	if err := row.Scan(&p.ID, &p.InstallmentID, &p.PaymentNumber, &p.Amount, &p.DueDate, &paid, &p.Status, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.PaidDate = timePtr(paid)
	return &p, nil
}

func scanPayments(rows *sql.Rows) ([]*models.InstallmentPayment, error) {
	defer rows.Close()

	var out []*models.InstallmentPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment payment row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return out, nil
}

func (q *queries) GetInstallmentPayment(ctx context.Context, id uuid.UUID) (*models.InstallmentPayment, error) {
	p, err := scanPayment(q.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM installment_payments p WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("installment payment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installment payment: %w", err)
	}
	return p, nil
}

func (q *queries) ListInstallmentPayments(ctx context.Context, installmentID uuid.UUID) ([]*models.InstallmentPayment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM installment_payments p WHERE p.installment_id = ? ORDER BY p.payment_number ASC`,
		installmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list installment payments: %w", err)
	}
	return scanPayments(rows)
}

func (q *queries) UpdateInstallmentPayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paidDate *time.Time) error {
	result, err := q.db.ExecContext(ctx,
		`UPDATE installment_payments SET status = ?, paid_date = ? WHERE id = ?`, status, nullTime(paidDate), id)
	if err != nil {
		return fmt.Errorf("failed to update installment payment: %w", err)
	}
	return expectOne(result, "installment payment "+id.String())
}

func (q *queries) ListUnpaidPaymentsDueBefore(ctx context.Context, costCenterID uuid.UUID, before time.Time) ([]*models.InstallmentPayment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+paymentColumns+`
		FROM installment_payments p
		INNER JOIN installments i ON i.id = p.installment_id
		WHERE i.cost_center_id = ? AND i.status = ? AND p.status IN (?, ?) AND p.due_date < ?
		ORDER BY p.due_date ASC, p.payment_number ASC`,
		costCenterID, models.InstallmentActive, models.PaymentPending, models.PaymentOverdue, utc(before))
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming payments: %w", err)
	}
	return scanPayments(rows)
}

func (q *queries) MarkPaymentsOverdue(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		`UPDATE installment_payments SET status = ?
		WHERE status = ? AND due_date < ?
		AND installment_id IN (SELECT id FROM installments WHERE status = ?)`,
		models.PaymentOverdue, models.PaymentPending, utc(before), models.InstallmentActive)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue payments: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n, nil
}
