package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/mcclellann/fredLedger/pkg/store"
)

const defaultWalletName = "Main Wallet"

type CostCenterParams struct {
	Name        string
	Code        string
	Description string
	AdminUserID uuid.UUID
}

// CostCenterResult is a new cost center with its admin membership and default wallet.
type CostCenterResult struct {
	CostCenter    *models.CostCenter `json:"cost_center"`
	Membership    *models.Membership `json:"membership"`
	DefaultWallet *models.Wallet     `json:"default_wallet"`
}

// CreateCostCenter opens a cost center owned by AdminUserID. The owner's approved membership and an
// empty default wallet are created with it.
func (l *Ledger) CreateCostCenter(ctx context.Context, p CostCenterParams) (*CostCenterResult, error) {
	name, err := requireText("name", p.Name)
	if err != nil {
		return nil, err
	}
	if p.AdminUserID == uuid.Nil {
		return nil, fmt.Errorf("%w: admin user is required", ErrInvalidInput)
	}
	now := l.now().UTC()
	code := strings.ToUpper(strings.TrimSpace(p.Code))
	if code == "" {
		code = newCostCenterCode(now.Year())
	}

	cc := &models.CostCenter{
		ID:          uuid.New(),
		Code:        code,
		Name:        name,
		Description: p.Description,
		AdminUserID: p.AdminUserID,
		CreatedAt:   now,
	}
	m := &models.Membership{
		ID:           uuid.New(),
		UserID:       p.AdminUserID,
		CostCenterID: cc.ID,
		Role:         models.RoleAdmin,
		Status:       models.MembershipApproved,
		RequestedAt:  now,
		ReviewedAt:   &now,
	}
	w := newWallet(cc.ID, defaultWalletName, models.WalletChecking, true, "", "", now)

	err = l.storage.InTx(ctx, func(repo store.Repo) error {
		if _, err := repo.GetCostCenterByCode(ctx, code); err == nil {
			return fmt.Errorf("%w: code %q is taken", ErrInvalidInput, code)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := repo.CreateCostCenter(ctx, cc); err != nil {
			return err
		}
		if err := repo.CreateMembership(ctx, m); err != nil {
			return err
		}
		return repo.CreateWallet(ctx, w)
	})
	if err != nil {
		l.rejected(ctx, "create_cost_center", err, "code", code)
		return nil, err
	}
	l.logger.InfoContext(ctx, "Cost center created", "cost_center_id", cc.ID, "code", cc.Code)
	return &CostCenterResult{CostCenter: cc, Membership: m, DefaultWallet: w}, nil
}

func newCostCenterCode(year int) string {
	return fmt.Sprintf("%d%s", year, strings.ToUpper(uuid.NewString()[:5]))
}

func (l *Ledger) GetCostCenter(ctx context.Context, id uuid.UUID) (*models.CostCenter, error) {
	return l.storage.GetCostCenter(ctx, id)
}

// ListUserCostCenters returns the cost centers the user belongs to or has asked to join.
func (l *Ledger) ListUserCostCenters(ctx context.Context, userID uuid.UUID) ([]*models.UserCostCenter, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	centers, err := l.storage.ListCostCentersForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if centers == nil {
		centers = []*models.UserCostCenter{}
	}
	return centers, nil
}

// RequestMembership asks to join the cost center with the given code as a collaborator.
func (l *Ledger) RequestMembership(ctx context.Context, code string, userID uuid.UUID) (*models.Membership, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || userID == uuid.Nil {
		return nil, fmt.Errorf("%w: code and user are required", ErrInvalidInput)
	}
	var m *models.Membership
	err := l.storage.InTx(ctx, func(repo store.Repo) error {
		cc, err := repo.GetCostCenterByCode(ctx, code)
		if err != nil {
			return err
		}
		existing, err := repo.ListMemberships(ctx, cc.ID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.UserID == userID {
				return fmt.Errorf("%w: user already has a %s membership", ErrInvalidInput, e.Status)
			}
		}
		m = &models.Membership{
			ID:           uuid.New(),
			UserID:       userID,
			CostCenterID: cc.ID,
			Role:         models.RoleCollaborator,
			Status:       models.MembershipPending,
			RequestedAt:  l.now().UTC(),
		}
		return repo.CreateMembership(ctx, m)
	})
	if err != nil {
		l.rejected(ctx, "request_membership", err, "code", code)
		return nil, err
	}
	l.logger.InfoContext(ctx, "Membership requested", "membership_id", m.ID, "cost_center_id", m.CostCenterID)
	return m, nil
}

// ReviewMembership approves or rejects a pending request.
func (l *Ledger) ReviewMembership(ctx context.Context, id uuid.UUID, approve bool) (*models.Membership, error) {
	var m *models.Membership
	err := l.storage.InTx(ctx, func(repo store.Repo) error {
		var err error
		if m, err = repo.GetMembership(ctx, id); err != nil {
			return err
		}
		if m.Status != models.MembershipPending {
			return fmt.Errorf("%w: membership is already %s", ErrInvalidInput, m.Status)
		}
		m.Status = models.MembershipRejected
		if approve {
			m.Status = models.MembershipApproved
		}
		now := l.now().UTC()
		m.ReviewedAt = &now
		return repo.UpdateMembership(ctx, m)
	})
	if err != nil {
		l.rejected(ctx, "review_membership", err, "membership_id", id)
		return nil, err
	}
	l.logger.InfoContext(ctx, "Membership reviewed", "membership_id", id, "status", m.Status)
	return m, nil
}

func (l *Ledger) ListMemberships(ctx context.Context, costCenterID uuid.UUID) ([]*models.Membership, error) {
	return l.storage.ListMemberships(ctx, costCenterID)
}
