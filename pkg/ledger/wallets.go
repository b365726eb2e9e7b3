package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/events"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/mcclellann/fredLedger/pkg/store"
	"github.com/shopspring/decimal"
)

const (
	defaultWalletColor = "#3B82F6"
	defaultWalletIcon  = "wallet"
	openingBalanceText = "Opening balance"
)

type WalletParams struct {
	CostCenterID   uuid.UUID
	UserID         uuid.UUID
	Name           string
	Type           models.WalletType
	OpeningBalance decimal.Decimal
	IsDefault      bool
	Color          string
	Icon           string
}

// CreateWallet adds a wallet to a cost center. A positive opening balance goes through the balance
// ledger as an income entry, so the log explains the balance from the first row.
func (l *Ledger) CreateWallet(ctx context.Context, p WalletParams) (*models.Wallet, error) {
	name, err := requireText("name", p.Name)
	if err != nil {
		return nil, err
	}
	if p.Type == "" {
		p.Type = models.WalletChecking
	}
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown wallet type %q", ErrInvalidInput, p.Type)
	}
	if p.OpeningBalance.Sign() < 0 {
		return nil, fmt.Errorf("%w: opening balance cannot be negative", ErrInvalidAmount)
	}
	if p.OpeningBalance.Sign() > 0 {
		if err := validateAmount(p.OpeningBalance); err != nil {
			return nil, err
		}
	}

	var wallet *models.Wallet
	err = l.storage.InTx(ctx, func(repo store.Repo) error {
		if _, err := repo.GetCostCenter(ctx, p.CostCenterID); err != nil {
			return err
		}
		if p.IsDefault {
			if _, err := repo.GetDefaultWallet(ctx, p.CostCenterID); err == nil {
				return fmt.Errorf("%w: cost center already has a default wallet", ErrDefaultWallet)
			} else if !errors.Is(err, ErrNotFound) {
				return err
			}
		}
		w := newWallet(p.CostCenterID, name, p.Type, p.IsDefault, p.Color, p.Icon, l.now())
		if err := repo.CreateWallet(ctx, w); err != nil {
			return err
		}
		wallet = w
		if p.OpeningBalance.Sign() == 0 {
			return nil
		}
		credited, err := balances{repo}.creditWallet(ctx, w.ID, p.OpeningBalance)
		if err != nil {
			return err
		}
		t := l.newTransaction(p.CostCenterID, p.UserID, models.TransactionTypeIncome, openingBalanceText, p.OpeningBalance, time.Time{})
		t.WalletID = &w.ID
		wallet = credited
		return repo.CreateTransaction(ctx, t)
	})
	if err != nil {
		l.rejected(ctx, "create_wallet", err, "cost_center_id", p.CostCenterID)
		return nil, err
	}
	l.logger.InfoContext(ctx, "Wallet created", "wallet_id", wallet.ID, "cost_center_id", wallet.CostCenterID,
		"balance", money(wallet.Balance))
	return wallet, nil
}

func newWallet(costCenterID uuid.UUID, name string, typ models.WalletType, isDefault bool, color, icon string, now time.Time) *models.Wallet {
	if color == "" {
		color = defaultWalletColor
	}
	if icon == "" {
		icon = defaultWalletIcon
	}
	return &models.Wallet{
		ID:           uuid.New(),
		CostCenterID: costCenterID,
		Name:         name,
		Type:         typ,
		Balance:      decimal.Zero,
		IsDefault:    isDefault,
		Color:        color,
		Icon:         icon,
		CreatedAt:    now.UTC(),
	}
}

// EntryParams describes money entering or leaving a wallet from outside the cost center.
type EntryParams struct {
	CostCenterID uuid.UUID
	UserID       uuid.UUID
	WalletID     uuid.UUID
	Amount       decimal.Decimal
	Description  string
	CategoryID   *uuid.UUID
	Date         time.Time
	IsFixed      bool
	Notes        string
}

type EntryResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Wallet      *models.Wallet      `json:"wallet"`
}

// RecordIncome credits a wallet and logs an income row.
func (l *Ledger) RecordIncome(ctx context.Context, p EntryParams) (*EntryResult, error) {
	return l.recordEntry(ctx, p, models.TransactionTypeIncome)
}

// RecordExpense debits a wallet and logs an expense row. The wallet cannot go negative.
func (l *Ledger) RecordExpense(ctx context.Context, p EntryParams) (*EntryResult, error) {
	return l.recordEntry(ctx, p, models.TransactionTypeExpense)
}

func (l *Ledger) recordEntry(ctx context.Context, p EntryParams, typ models.TransactionType) (*EntryResult, error) {
	if err := validateAmount(p.Amount); err != nil {
		return nil, err
	}
	desc, err := requireText("description", p.Description)
	if err != nil {
		return nil, err
	}
	categoryType := models.CategoryExpense
	if typ == models.TransactionTypeIncome {
		categoryType = models.CategoryIncome
	}

	var result EntryResult
	err = l.storage.InTx(ctx, func(repo store.Repo) error {
		if _, err := l.walletIn(ctx, repo, p.CostCenterID, p.WalletID); err != nil {
			return err
		}
		if err := l.checkCategory(ctx, repo, p.CostCenterID, p.CategoryID, categoryType); err != nil {
			return err
		}
		b := balances{repo}
		var (
			w   *models.Wallet
			err error
		)
		if typ == models.TransactionTypeIncome {
			w, err = b.creditWallet(ctx, p.WalletID, p.Amount)
		} else {
			w, err = b.debitWallet(ctx, p.WalletID, p.Amount)
		}
		if err != nil {
			return err
		}
		t := l.newTransaction(p.CostCenterID, p.UserID, typ, desc, p.Amount, p.Date)
		t.WalletID = &w.ID
		t.CategoryID = p.CategoryID
		t.IsFixed = p.IsFixed
		t.Notes = p.Notes
		if err := repo.CreateTransaction(ctx, t); err != nil {
			return err
		}
		result = EntryResult{Transaction: t, Wallet: w}
		return nil
	})
	if err != nil {
		l.rejected(ctx, "record_"+string(typ), err, "wallet_id", p.WalletID, "amount", p.Amount.String())
		return nil, err
	}

	l.logger.InfoContext(ctx, "Wallet entry recorded", "type", typ, "wallet_id", p.WalletID,
		"amount", money(p.Amount), "balance", money(result.Wallet.Balance))
	eventType := events.TypeWalletDebited
	if typ == models.TransactionTypeIncome {
		eventType = events.TypeWalletCredited
	}
	l.publish(ctx, eventType, p.CostCenterID, map[string]any{
		"wallet_id":      p.WalletID,
		"transaction_id": result.Transaction.ID,
		"amount":         p.Amount,
		"balance":        result.Wallet.Balance,
	})
	return &result, nil
}

// DeleteWallet removes a wallet that nothing refers to. The default wallet stays.
func (l *Ledger) DeleteWallet(ctx context.Context, costCenterID, walletID uuid.UUID) error {
	err := l.storage.InTx(ctx, func(repo store.Repo) error {
		w, err := l.walletIn(ctx, repo, costCenterID, walletID)
		if err != nil {
			return err
		}
		if w.IsDefault {
			return fmt.Errorf("%w: the default wallet cannot be deleted", ErrDefaultWallet)
		}
		refs, err := repo.CountWalletReferences(ctx, w.ID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: %d transactions or installments", ErrWalletInUse, refs)
		}
		return repo.DeleteWallet(ctx, w.ID)
	})
	if err != nil {
		l.rejected(ctx, "delete_wallet", err, "wallet_id", walletID)
		return err
	}
	l.logger.InfoContext(ctx, "Wallet deleted", "wallet_id", walletID)
	return nil
}

func (l *Ledger) GetWallet(ctx context.Context, costCenterID, walletID uuid.UUID) (*models.Wallet, error) {
	return l.walletIn(ctx, l.storage, costCenterID, walletID)
}

func (l *Ledger) ListWallets(ctx context.Context, costCenterID uuid.UUID) ([]*models.Wallet, error) {
	return l.storage.ListWallets(ctx, costCenterID)
}

type CategoryParams struct {
	CostCenterID uuid.UUID
	Name         string
	Type         models.CategoryType
	Color        string
	Icon         string
}

func (l *Ledger) CreateCategory(ctx context.Context, p CategoryParams) (*models.Category, error) {
	name, err := requireText("name", p.Name)
	if err != nil {
		return nil, err
	}
	if p.Type != models.CategoryIncome && p.Type != models.CategoryExpense {
		return nil, fmt.Errorf("%w: category type must be income or expense", ErrInvalidInput)
	}
	if _, err := l.storage.GetCostCenter(ctx, p.CostCenterID); err != nil {
		return nil, err
	}
	c := &models.Category{
		ID:           uuid.New(),
		CostCenterID: p.CostCenterID,
		Name:         name,
		Type:         p.Type,
		Color:        p.Color,
		Icon:         p.Icon,
		CreatedAt:    l.now().UTC(),
	}
	if err := l.storage.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (l *Ledger) ListCategories(ctx context.Context, costCenterID uuid.UUID) ([]*models.Category, error) {
	return l.storage.ListCategories(ctx, costCenterID)
}
