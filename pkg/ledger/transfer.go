package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/events"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/mcclellann/fredLedger/pkg/store"
	"github.com/shopspring/decimal"
)

type TransferParams struct {
	CostCenterID uuid.UUID
	UserID       uuid.UUID
	FromWalletID uuid.UUID
	ToWalletID   uuid.UUID
	Amount       decimal.Decimal
	Description  string
}

// TransferResult holds both legs of a transfer and the wallets as they stand after it.
type TransferResult struct {
	Out  *models.Transaction `json:"transfer_out"`
	In   *models.Transaction `json:"transfer_in"`
	From *models.Wallet      `json:"from_wallet"`
	To   *models.Wallet      `json:"to_wallet"`
}

// Transfer moves money between two wallets of the same cost center. The debit, the credit and both
// log rows commit together or not at all.
func (l *Ledger) Transfer(ctx context.Context, p TransferParams) (*TransferResult, error) {
	if p.FromWalletID == p.ToWalletID {
		return nil, fmt.Errorf("%w: %s", ErrSameWallet, p.FromWalletID)
	}
	if err := validateAmount(p.Amount); err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(p.Description)

	var result TransferResult
	err := l.storage.InTx(ctx, func(repo store.Repo) error {
		from, err := l.walletIn(ctx, repo, p.CostCenterID, p.FromWalletID)
		if err != nil {
			return err
		}
		to, err := l.walletIn(ctx, repo, p.CostCenterID, p.ToWalletID)
		if err != nil {
			return err
		}

		b := balances{repo}
		if result.From, err = b.debitWallet(ctx, from.ID, p.Amount); err != nil {
			return err
		}
		if result.To, err = b.creditWallet(ctx, to.ID, p.Amount); err != nil {
			return err
		}

		out := l.newTransaction(p.CostCenterID, p.UserID, models.TransactionTypeTransferOut, transferText("Transfer to", to.Name, desc), p.Amount, time.Time{})
		out.WalletID = &from.ID
		in := l.newTransaction(p.CostCenterID, p.UserID, models.TransactionTypeTransferIn, transferText("Transfer from", from.Name, desc), p.Amount, out.Date)
		in.WalletID = &to.ID
		if err := repo.CreateTransaction(ctx, out); err != nil {
			return err
		}
		if err := repo.CreateTransaction(ctx, in); err != nil {
			return err
		}
		result.Out, result.In = out, in
		return nil
	})
	if err != nil {
		l.rejected(ctx, "transfer", err, "from_wallet_id", p.FromWalletID, "to_wallet_id", p.ToWalletID, "amount", p.Amount.String())
		return nil, err
	}

	l.logger.InfoContext(ctx, "Transfer committed", "from_wallet_id", p.FromWalletID, "to_wallet_id", p.ToWalletID,
		"amount", money(p.Amount))
	l.publish(ctx, events.TypeTransferCompleted, p.CostCenterID, map[string]any{
		"from_wallet_id":  p.FromWalletID,
		"to_wallet_id":    p.ToWalletID,
		"amount":          p.Amount,
		"out_transaction": result.Out.ID,
		"in_transaction":  result.In.ID,
	})
	return &result, nil
}

func transferText(prefix, walletName, description string) string {
	if description == "" {
		return prefix + " " + walletName
	}
	return prefix + " " + walletName + ": " + description
}
