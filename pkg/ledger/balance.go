package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/mcclellann/fredLedger/pkg/store"
	"github.com/shopspring/decimal"
)

// balances is the only code path that changes a stored wallet or credit card balance. It works on
// the repository of the caller's unit of work, so the check and the write see the same state.
type balances struct {
	repo store.Repo
}

func (b balances) creditWallet(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*models.Wallet, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	w, err := b.repo.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	w.Balance = w.Balance.Add(amount)
	if err := b.repo.SetWalletBalance(ctx, w.ID, w.Balance); err != nil {
		return nil, err
	}
	return w, nil
}

// debitWallet subtracts amount and refuses to take the balance below zero.
func (b balances) debitWallet(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*models.Wallet, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	w, err := b.repo.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.Balance.LessThan(amount) {
		return nil, fmt.Errorf("%w: wallet %q holds %s, needs %s", ErrInsufficientFunds, w.Name, money(w.Balance), money(amount))
	}
	w.Balance = w.Balance.Sub(amount)
	if err := b.repo.SetWalletBalance(ctx, w.ID, w.Balance); err != nil {
		return nil, err
	}
	return w, nil
}

// chargeCard adds amount to what is owed, up to and including the limit.
func (b balances) chargeCard(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal) (*models.CreditCard, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	c, err := b.repo.GetCreditCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if c.CurrentBalance.Add(amount).GreaterThan(c.Limit) {
		return nil, fmt.Errorf("%w: card %q has %s available, needs %s", ErrCreditLimitExceeded, c.Name, money(c.Available()), money(amount))
	}
	c.CurrentBalance = c.CurrentBalance.Add(amount)
	if err := b.repo.SetCreditCardBalance(ctx, c.ID, c.CurrentBalance); err != nil {
		return nil, err
	}
	return c, nil
}

// reduceCardBalance subtracts amount from what is owed, stopping at zero.
func (b balances) reduceCardBalance(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal) (*models.CreditCard, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	c, err := b.repo.GetCreditCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	c.CurrentBalance = decimal.Max(c.CurrentBalance.Sub(amount), decimal.Zero)
	if err := b.repo.SetCreditCardBalance(ctx, c.ID, c.CurrentBalance); err != nil {
		return nil, err
	}
	return c, nil
}
