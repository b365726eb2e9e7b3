package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/mcclellann/fredLedger/pkg/store"
	"github.com/shopspring/decimal"
)

type CategoryTotal struct {
	CategoryID *uuid.UUID      `json:"category_id"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
}

type UserTotal struct {
	UserID       uuid.UUID       `json:"user_id"`
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Net          decimal.Decimal `json:"net"`
	Transactions int             `json:"transactions"`
}

// Summary aggregates the transaction log over a period. Expenses count wallet expenses and card
// purchases; transfers and bill payments move money inside the cost center and are only in Totals.
type Summary struct {
	CostCenterID     uuid.UUID                                   `json:"cost_center_id"`
	From             time.Time                                   `json:"from"`
	To               time.Time                                   `json:"to"`
	Totals           map[models.TransactionType]decimal.Decimal `json:"totals"`
	Income           decimal.Decimal                             `json:"income"`
	Expenses         decimal.Decimal                             `json:"expenses"`
	Net              decimal.Decimal                             `json:"net"`
	ByCategory       []CategoryTotal                             `json:"by_category"`
	ByUser           []UserTotal                                 `json:"by_user"`
	TransactionCount int                                         `json:"transaction_count"`
}

func isSpending(t models.TransactionType) bool {
	return t == models.TransactionTypeExpense || t == models.TransactionTypeCreditExpense
}

// Summary computes totals for transactions dated in [from, to).
func (l *Ledger) Summary(ctx context.Context, costCenterID uuid.UUID, from, to time.Time) (*Summary, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidInput)
	}
	var (
		transactions []*models.Transaction
		categories   []*models.Category
	)
	// One unit of work so every category a transaction points at is visible.
	err := l.storage.InTx(ctx, func(repo store.Repo) error {
		var err error
		transactions, err = repo.ListTransactions(ctx, store.TransactionFilter{CostCenterID: costCenterID, From: from, To: to})
		if err != nil {
			return err
		}
		categories, err = repo.ListCategories(ctx, costCenterID)
		return err
	})
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	s := &Summary{
		CostCenterID:     costCenterID,
		From:             from,
		To:               to,
		Totals:           make(map[models.TransactionType]decimal.Decimal),
		Income:           decimal.Zero,
		Expenses:         decimal.Zero,
		TransactionCount: len(transactions),
	}
	byCategory := make(map[uuid.UUID]*CategoryTotal)
	var uncategorized *CategoryTotal
	byUser := make(map[uuid.UUID]*UserTotal)

	for _, t := range transactions {
		s.Totals[t.Type] = s.Totals[t.Type].Add(t.Amount)

		u, ok := byUser[t.UserID]
		if !ok {
			u = &UserTotal{UserID: t.UserID, Income: decimal.Zero, Expenses: decimal.Zero}
			byUser[t.UserID] = u
		}
		u.Transactions++

		switch {
		case t.Type == models.TransactionTypeIncome:
			s.Income = s.Income.Add(t.Amount)
			u.Income = u.Income.Add(t.Amount)
		case isSpending(t.Type):
			s.Expenses = s.Expenses.Add(t.Amount)
			u.Expenses = u.Expenses.Add(t.Amount)
			if t.CategoryID == nil {
				if uncategorized == nil {
					uncategorized = &CategoryTotal{Name: "Uncategorized", Total: decimal.Zero}
				}
				uncategorized.Total = uncategorized.Total.Add(t.Amount)
				continue
			}
			c, ok := byCategory[*t.CategoryID]
			if !ok {
				id := *t.CategoryID
				c = &CategoryTotal{CategoryID: &id, Name: names[id], Total: decimal.Zero}
				byCategory[id] = c
			}
			c.Total = c.Total.Add(t.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expenses)

	for _, c := range byCategory {
		s.ByCategory = append(s.ByCategory, *c)
	}
	if uncategorized != nil {
		s.ByCategory = append(s.ByCategory, *uncategorized)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if !s.ByCategory[i].Total.Equal(s.ByCategory[j].Total) {
			return s.ByCategory[i].Total.GreaterThan(s.ByCategory[j].Total)
		}
		return s.ByCategory[i].Name < s.ByCategory[j].Name
	})
	for _, u := range byUser {
		u.Net = u.Income.Sub(u.Expenses)
		s.ByUser = append(s.ByUser, *u)
	}
	sort.Slice(s.ByUser, func(i, j int) bool {
		return s.ByUser[i].UserID.String() < s.ByUser[j].UserID.String()
	})
	return s, nil
}

// WalletReconciliation compares a wallet's stored balance with the balance its log rows imply.
type WalletReconciliation struct {
	WalletID   uuid.UUID       `json:"wallet_id"`
	Name       string          `json:"name"`
	Stored     decimal.Decimal `json:"stored"`
	Derived    decimal.Decimal `json:"derived"`
	Consistent bool            `json:"consistent"`
}

// Reconcile checks every wallet of the cost center against the transaction log. Wallets and
// transactions are read in one unit of work so a concurrent mutation cannot show up half applied.
func (l *Ledger) Reconcile(ctx context.Context, costCenterID uuid.UUID) ([]WalletReconciliation, error) {
	var out []WalletReconciliation
	err := l.storage.InTx(ctx, func(repo store.Repo) error {
		wallets, err := repo.ListWallets(ctx, costCenterID)
		if err != nil {
			return err
		}
		transactions, err := repo.ListTransactions(ctx, store.TransactionFilter{CostCenterID: costCenterID})
		if err != nil {
			return err
		}
		derived := make(map[uuid.UUID]decimal.Decimal, len(wallets))
		for _, t := range transactions {
			if t.WalletID == nil {
				continue
			}
			sign := t.Type.WalletSign()
			derived[*t.WalletID] = derived[*t.WalletID].Add(t.Amount.Mul(decimal.NewFromInt(int64(sign))))
		}
		for _, w := range wallets {
			d := derived[w.ID]
			out = append(out, WalletReconciliation{
				WalletID:   w.ID,
				Name:       w.Name,
				Stored:     w.Balance,
				Derived:    d,
				Consistent: w.Balance.Equal(d),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, r := range out {
		if !r.Consistent {
			l.logger.WarnContext(ctx, "Wallet balance drifted from transaction log", "wallet_id", r.WalletID,
				"stored", money(r.Stored), "derived", money(r.Derived))
		}
	}
	return out, nil
}
