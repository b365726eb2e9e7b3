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

func (q *queries) CreateCreditCard(ctx context.Context, c *models.CreditCard) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO credit_cards (id, cost_center_id, name, credit_limit, current_balance, due_day, closing_day, color, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CostCenterID, c.Name, c.Limit, c.CurrentBalance, c.DueDay, c.ClosingDay, c.Color, c.Icon, utc(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create credit card: %w", err)
	}
	return nil
}

const creditCardColumns = `id, cost_center_id, name, credit_limit, current_balance, due_day, closing_day, color, icon, created_at`

func scanCreditCard(row scanner) (*models.CreditCard, error) {
	var c models.CreditCard
	if err := row.Scan(&c.ID, &c.CostCenterID, &c.Name, &c.Limit, &c.CurrentBalance, &c.DueDay, &c.ClosingDay, &c.Color, &c.Icon, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *queries) GetCreditCard(ctx context.Context, id uuid.UUID) (*models.CreditCard, error) {
	c, err := scanCreditCard(q.db.QueryRowContext(ctx, `SELECT `+creditCardColumns+` FROM credit_cards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("credit card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credit card: %w", err)
	}
	return c, nil
}

func (q *queries) ListCreditCards(ctx context.Context, costCenterID uuid.UUID) ([]*models.CreditCard, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+creditCardColumns+` FROM credit_cards WHERE cost_center_id = ? ORDER BY created_at ASC`, costCenterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.CreditCard
	for rows.Next() {
		c, err := scanCreditCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit card row: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return cards, nil
}

// SetCreditCardBalance overwrites the amount owed. Only the balance ledger calls this.
func (q *queries) SetCreditCardBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	result, err := q.db.ExecContext(ctx, `UPDATE credit_cards SET current_balance = ? WHERE id = ?`, balance, id)
	if err != nil {
		return fmt.Errorf("failed to update credit card balance: %w", err)
	}
	return expectOne(result, "credit card "+id.String())
}

func (q *queries) CreateCategory(ctx context.Context, c *models.Category) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (id, cost_center_id, name, type, color, icon, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CostCenterID, c.Name, c.Type, c.Color, c.Icon, utc(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

const categoryColumns = `id, cost_center_id, name, type, color, icon, created_at`

func scanCategory(row scanner) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.CostCenterID, &c.Name, &c.Type, &c.Color, &c.Icon, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *queries) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (q *queries) ListCategories(ctx context.Context, costCenterID uuid.UUID) ([]*models.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE cost_center_id = ? ORDER BY type, name`, costCenterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return out, nil
}
