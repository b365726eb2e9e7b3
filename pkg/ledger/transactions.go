package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/mcclellann/fredLedger/pkg/store"
	"github.com/shopspring/decimal"
)

// newTransaction builds a log row stamped with the ledger clock. A zero date means now.
func (l *Ledger) newTransaction(costCenterID, userID uuid.UUID, typ models.TransactionType, description string, amount decimal.Decimal, date time.Time) *models.Transaction {
	now := l.now().UTC()
	if date.IsZero() {
		date = now
	}
	return &models.Transaction{
		ID:           uuid.New(),
		CostCenterID: costCenterID,
		UserID:       userID,
		Type:         typ,
		Description:  description,
		Amount:       amount,
		Date:         date.UTC(),
		CreatedAt:    now,
	}
}

// ListTransactions returns the cost center's transactions dated in [from, to), newest first. A zero
// bound is open.
func (l *Ledger) ListTransactions(ctx context.Context, costCenterID uuid.UUID, from, to time.Time) ([]*models.Transaction, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidInput)
	}
	return l.storage.ListTransactions(ctx, store.TransactionFilter{CostCenterID: costCenterID, From: from, To: to})
}

// TransactionDetails lists the fields of a recorded transaction that may still change. Nil fields are
// left as they are.
type TransactionDetails struct {
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Notes       *string    `json:"notes"`
}

// UpdateTransactionDetails edits descriptive fields. Amount and type have no update path, which keeps
// balances and the log in agreement.
func (l *Ledger) UpdateTransactionDetails(ctx context.Context, costCenterID, id uuid.UUID, d TransactionDetails) (*models.Transaction, error) {
	var updated *models.Transaction
	err := l.storage.InTx(ctx, func(repo store.Repo) error {
		t, err := repo.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if t.CostCenterID != costCenterID {
			return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		if d.Description != nil {
			desc := strings.TrimSpace(*d.Description)
			if desc == "" {
				return fmt.Errorf("%w: description cannot be empty", ErrInvalidInput)
			}
			t.Description = desc
		}
		if d.Date != nil {
			if d.Date.IsZero() {
				return fmt.Errorf("%w: date cannot be empty", ErrInvalidInput)
			}
			t.Date = d.Date.UTC()
		}
		if d.Notes != nil {
			t.Notes = *d.Notes
		}
		if err := repo.UpdateTransactionDetails(ctx, t.ID, t.Description, t.Date, t.Notes); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		l.rejected(ctx, "update_transaction", err, "transaction_id", id)
		return nil, err
	}
	l.logger.InfoContext(ctx, "Transaction details updated", "transaction_id", id)
	return updated, nil
}
