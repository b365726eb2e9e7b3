package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/models"
)

type scanner interface {
	Scan(dest ...any) error
}

func (q *queries) CreateCostCenter(ctx context.Context, cc *models.CostCenter) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO cost_centers (id, code, name, description, admin_user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		cc.ID, cc.Code, cc.Name, cc.Description, cc.AdminUserID, utc(cc.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create cost center: %w", err)
	}
	return nil
}

const costCenterColumns = `id, code, name, description, admin_user_id, created_at`

func scanCostCenter(row scanner) (*models.CostCenter, error) {
	var cc models.CostCenter
	if err := row.Scan(&cc.ID, &cc.Code, &cc.Name, &cc.Description, &cc.AdminUserID, &cc.CreatedAt); err != nil {
		return nil, err
	}
	return &cc, nil
}

func (q *queries) GetCostCenter(ctx context.Context, id uuid.UUID) (*models.CostCenter, error) {
	cc, err := scanCostCenter(q.db.QueryRowContext(ctx,
		`SELECT `+costCenterColumns+` FROM cost_centers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cost center %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cost center: %w", err)
	}
	return cc, nil
}

func (q *queries) GetCostCenterByCode(ctx context.Context, code string) (*models.CostCenter, error) {
	cc, err := scanCostCenter(q.db.QueryRowContext(ctx,
		`SELECT `+costCenterColumns+` FROM cost_centers WHERE code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cost center code %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cost center by code: %w", err)
	}
	return cc, nil
}

// ListCostCentersForUser returns every cost center the user has a membership in, with that
// membership's role and status. Pending and rejected memberships are included.
func (q *queries) ListCostCentersForUser(ctx context.Context, userID uuid.UUID) ([]*models.UserCostCenter, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT cc.id, cc.code, cc.name, cc.description, cc.admin_user_id, cc.created_at, m.role, m.status
		FROM cost_centers cc
		INNER JOIN memberships m ON m.cost_center_id = cc.id
		WHERE m.user_id = ?
		ORDER BY cc.created_at ASC, cc.name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cost centers for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []*models.UserCostCenter
	for rows.Next() {
		var u models.UserCostCenter
		cc := &u.CostCenter
		if err := rows.Scan(&cc.ID, &cc.Code, &cc.Name, &cc.Description, &cc.AdminUserID, &cc.CreatedAt,
			&u.Role, &u.MembershipStatus); err != nil {
			return nil, fmt.Errorf("failed to scan cost center row: %w", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return out, nil
}

func (q *queries) CreateMembership(ctx context.Context, m *models.Membership) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO memberships (id, user_id, cost_center_id, role, status, requested_at, reviewed_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.CostCenterID, m.Role, m.Status, utc(m.RequestedAt), nullTime(m.ReviewedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

const membershipColumns = `id, user_id, cost_center_id, role, status, requested_at, reviewed_at`

func scanMembership(row scanner) (*models.Membership, error) {
	var m models.Membership
	var reviewed sql.NullTime
	if err := row.Scan(&m.ID, &m.UserID, &m.CostCenterID, &m.Role, &m.Status, &m.RequestedAt, &reviewed); err != nil {
		return nil, err
	}
	m.ReviewedAt = timePtr(reviewed)
	return &m, nil
}

func (q *queries) GetMembership(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	m, err := scanMembership(q.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("membership %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

func (q *queries) UpdateMembership(ctx context.Context, m *models.Membership) error {
	result, err := q.db.ExecContext(ctx,
		`UPDATE memberships SET role = ?, status = ?, reviewed_at = ? WHERE id = ?`,
		m.Role, m.Status, nullTime(m.ReviewedAt), m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	return expectOne(result, "membership "+m.ID.String())
}

func (q *queries) ListMemberships(ctx context.Context, costCenterID uuid.UUID) ([]*models.Membership, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE cost_center_id = ? ORDER BY requested_at ASC`, costCenterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var out []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return out, nil
}
