package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/events"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/mcclellann/fredLedger/pkg/store"
	"github.com/shopspring/decimal"
)

type CreditCardParams struct {
	CostCenterID uuid.UUID
	Name         string
	Limit        decimal.Decimal
	DueDay       int
	ClosingDay   int
	Color        string
	Icon         string
}

func (l *Ledger) CreateCreditCard(ctx context.Context, p CreditCardParams) (*models.CreditCard, error) {
	name, err := requireText("name", p.Name)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(p.Limit); err != nil {
		return nil, err
	}
	if p.DueDay < 1 || p.DueDay > 31 || p.ClosingDay < 1 || p.ClosingDay > 31 {
		return nil, fmt.Errorf("%w: due and closing day must be between 1 and 31", ErrInvalidInput)
	}
	if _, err := l.storage.GetCostCenter(ctx, p.CostCenterID); err != nil {
		return nil, err
	}
	c := &models.CreditCard{
		ID:             uuid.New(),
		CostCenterID:   p.CostCenterID,
		Name:           name,
		Limit:          p.Limit,
		CurrentBalance: decimal.Zero,
		DueDay:         p.DueDay,
		ClosingDay:     p.ClosingDay,
		Color:          p.Color,
		Icon:           p.Icon,
		CreatedAt:      l.now().UTC(),
	}
	if err := l.storage.CreateCreditCard(ctx, c); err != nil {
		return nil, err
	}
	l.logger.InfoContext(ctx, "Credit card created", "card_id", c.ID, "limit", money(c.Limit))
	return c, nil
}

func (l *Ledger) GetCreditCard(ctx context.Context, costCenterID, cardID uuid.UUID) (*models.CreditCard, error) {
	return l.cardIn(ctx, l.storage, costCenterID, cardID)
}

func (l *Ledger) ListCreditCards(ctx context.Context, costCenterID uuid.UUID) ([]*models.CreditCard, error) {
	return l.storage.ListCreditCards(ctx, costCenterID)
}

type ChargeParams struct {
	CostCenterID uuid.UUID
	UserID       uuid.UUID
	CardID       uuid.UUID
	Amount       decimal.Decimal
	Description  string
	CategoryID   *uuid.UUID
	Date         time.Time
	Notes        string
}

type ChargeResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Card        *models.CreditCard  `json:"credit_card"`
}

// ChargeForPurchase adds a purchase to the card's balance. A charge that lands exactly on the limit
// is accepted; one cent more is not.
func (l *Ledger) ChargeForPurchase(ctx context.Context, p ChargeParams) (*ChargeResult, error) {
	if err := validateAmount(p.Amount); err != nil {
		return nil, err
	}
	desc, err := requireText("description", p.Description)
	if err != nil {
		return nil, err
	}

	var result ChargeResult
	err = l.storage.InTx(ctx, func(repo store.Repo) error {
		if _, err := l.cardIn(ctx, repo, p.CostCenterID, p.CardID); err != nil {
			return err
		}
		if err := l.checkCategory(ctx, repo, p.CostCenterID, p.CategoryID, models.CategoryExpense); err != nil {
			return err
		}
		card, err := balances{repo}.chargeCard(ctx, p.CardID, p.Amount)
		if err != nil {
			return err
		}
		t := l.newTransaction(p.CostCenterID, p.UserID, models.TransactionTypeCreditExpense, desc, p.Amount, p.Date)
		t.CreditCardID = &card.ID
		t.CategoryID = p.CategoryID
		t.Notes = p.Notes
		if err := repo.CreateTransaction(ctx, t); err != nil {
			return err
		}
		result = ChargeResult{Transaction: t, Card: card}
		return nil
	})
	if err != nil {
		l.rejected(ctx, "charge_card", err, "card_id", p.CardID, "amount", p.Amount.String())
		return nil, err
	}

	l.logger.InfoContext(ctx, "Card charged", "card_id", p.CardID, "amount", money(p.Amount),
		"current_balance", money(result.Card.CurrentBalance))
	l.publish(ctx, events.TypeCardCharged, p.CostCenterID, map[string]any{
		"card_id":         p.CardID,
		"transaction_id":  result.Transaction.ID,
		"amount":          p.Amount,
		"current_balance": result.Card.CurrentBalance,
	})
	return &result, nil
}

type PayBillParams struct {
	CostCenterID uuid.UUID
	UserID       uuid.UUID
	CardID       uuid.UUID
	WalletID     uuid.UUID
	Amount       decimal.Decimal
}

type PayBillResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Card        *models.CreditCard  `json:"credit_card"`
	Wallet      *models.Wallet      `json:"wallet"`
}

// PayBill settles part or all of a card's balance from a wallet. Paying more than is owed is
// rejected before anything changes.
func (l *Ledger) PayBill(ctx context.Context, p PayBillParams) (*PayBillResult, error) {
	if err := validateAmount(p.Amount); err != nil {
		return nil, err
	}

	var result PayBillResult
	err := l.storage.InTx(ctx, func(repo store.Repo) error {
		card, err := l.cardIn(ctx, repo, p.CostCenterID, p.CardID)
		if err != nil {
			return err
		}
		wallet, err := l.walletIn(ctx, repo, p.CostCenterID, p.WalletID)
		if err != nil {
			return err
		}
		if p.Amount.GreaterThan(card.CurrentBalance) {
			return fmt.Errorf("%w: payment %s exceeds outstanding balance %s", ErrInvalidAmount, money(p.Amount), money(card.CurrentBalance))
		}
		if wallet.Balance.LessThan(p.Amount) {
			return fmt.Errorf("%w: wallet %q holds %s, needs %s", ErrInsufficientFunds, wallet.Name, money(wallet.Balance), money(p.Amount))
		}

		b := balances{repo}
		if result.Card, err = b.reduceCardBalance(ctx, card.ID, p.Amount); err != nil {
			return err
		}
		if result.Wallet, err = b.debitWallet(ctx, wallet.ID, p.Amount); err != nil {
			return err
		}
		t := l.newTransaction(p.CostCenterID, p.UserID, models.TransactionTypeBillPayment, "Card payment "+card.Name, p.Amount, time.Time{})
		t.WalletID = &wallet.ID
		t.CreditCardID = &card.ID
		if err := repo.CreateTransaction(ctx, t); err != nil {
			return err
		}
		result.Transaction = t
		return nil
	})
	if err != nil {
		l.rejected(ctx, "pay_bill", err, "card_id", p.CardID, "wallet_id", p.WalletID, "amount", p.Amount.String())
		return nil, err
	}

	l.logger.InfoContext(ctx, "Card bill paid", "card_id", p.CardID, "wallet_id", p.WalletID,
		"amount", money(p.Amount), "current_balance", money(result.Card.CurrentBalance))
	l.publish(ctx, events.TypeBillPaid, p.CostCenterID, map[string]any{
		"card_id":         p.CardID,
		"wallet_id":       p.WalletID,
		"transaction_id":  result.Transaction.ID,
		"amount":          p.Amount,
		"current_balance": result.Card.CurrentBalance,
	})
	return &result, nil
}
