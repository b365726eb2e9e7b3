package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/shopspring/decimal"
)

// CreateWallet inserts a new wallet. The partial unique index on is_default rejects a second
// default wallet for the same cost center.
func (q *queries) CreateWallet(ctx context.Context, w *models.Wallet) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO wallets (id, cost_center_id, name, type, balance, is_default, color, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.CostCenterID, w.Name, w.Type, w.Balance, w.IsDefault, w.Color, w.Icon, utc(w.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

const walletColumns = `id, cost_center_id, name, type, balance, is_default, color, icon, created_at`

func scanWallet(row scanner) (*models.Wallet, error) {
	var w models.Wallet
	if err := row.Scan(&w.ID, &w.CostCenterID, &w.Name, &w.Type, &w.Balance, &w.IsDefault, &w.Color, &w.Icon, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWallet retrieves a wallet by its ID.
func (q *queries) GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	w, err := scanWallet(q.db.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

func (q *queries) GetDefaultWallet(ctx context.Context, costCenterID uuid.UUID) (*models.Wallet, error) {
	w, err := scanWallet(q.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE cost_center_id = ? AND is_default = 1`, costCenterID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("default wallet of %s: %w", costCenterID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default wallet: %w", err)
	}
	return w, nil
}

func (q *queries) ListWallets(ctx context.Context, costCenterID uuid.UUID) ([]*models.Wallet, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE cost_center_id = ? ORDER BY is_default DESC, created_at ASC`, costCenterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*models.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return wallets, nil
}

// SetWalletBalance overwrites the stored balance. Only the balance ledger calls this.
func (q *queries) SetWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	result, err := q.db.ExecContext(ctx, `UPDATE wallets SET balance = ? WHERE id = ?`, balance, id)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	return expectOne(result, "wallet "+id.String())
}

// CountWalletReferences counts transactions and installments that point at the wallet.
func (q *queries) CountWalletReferences(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM transactions WHERE wallet_id = ?) + (SELECT COUNT(*) FROM installments WHERE wallet_id = ?)`,
		id, id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count wallet references: %w", err)
	}
	return n, nil
}

func (q *queries) DeleteWallet(ctx context.Context, id uuid.UUID) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	return expectOne(result, "wallet "+id.String())
}
