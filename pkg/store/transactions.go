package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/models"
)

// CreateTransaction appends a row to the transaction log.
func (q *queries) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (id, cost_center_id, user_id, wallet_id, credit_card_id, type, description, amount,
			category_id, date, installment_id, current_installment, total_installments, is_fixed, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CostCenterID, t.UserID, t.WalletID, t.CreditCardID, t.Type, t.Description, t.Amount,
		t.CategoryID, utc(t.Date), t.InstallmentID, nullInt(t.CurrentInstallment), nullInt(t.TotalInstallments),
		t.IsFixed, t.Notes, utc(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

const transactionColumns = `id, cost_center_id, user_id, wallet_id, credit_card_id, type, description, amount,
	category_id, date, installment_id, current_installment, total_installments, is_fixed, notes, created_at`

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	var t models.Transaction
	var walletID, cardID, categoryID, installmentID uuid.NullUUID
	var current, total sql.NullInt64
	err := row.Scan(&t.ID, &t.CostCenterID, &t.UserID, &walletID, &cardID, &t.Type, &t.Description, &t.Amount,
		&categoryID, &t.Date, &installmentID, &current, &total, &t.IsFixed, &t.Notes, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.WalletID = uuidPtr(walletID)
	t.CreditCardID = uuidPtr(cardID)
	t.CategoryID = uuidPtr(categoryID)
	t.InstallmentID = uuidPtr(installmentID)
	t.CurrentInstallment = intPtr(current)
	t.TotalInstallments = intPtr(total)
	return &t, nil
}

func (q *queries) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns the cost center's transactions matching f, newest first.
func (q *queries) ListTransactions(ctx context.Context, f TransactionFilter) ([]*models.Transaction, error) {
	where := []string{"cost_center_id = ?"}
	args := []any{f.CostCenterID}
	if f.WalletID != nil {
		where = append(where, "wallet_id = ?")
		args = append(args, *f.WalletID)
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, utc(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date < ?")
		args = append(args, utc(f.To))
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+strings.Join(where, " AND ")+` ORDER BY date DESC, created_at DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for cost center %s: %w", f.CostCenterID, err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for transactions: %w", err)
	}
	return transactions, nil
}

// UpdateTransactionDetails edits the descriptive fields of a transaction. Amount and type have no
// update path.
func (q *queries) UpdateTransactionDetails(ctx context.Context, id uuid.UUID, description string, date time.Time, notes string) error {
	result, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET description = ?, date = ?, notes = ? WHERE id = ?`,
		description, utc(date), notes, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectOne(result, "transaction "+id.String())
}
