package ledger

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/events"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	a := f.wallet("A", "100.00")
	b := f.wallet("B", "0")
	before := len(f.transactions())

	res, err := f.ledger.Transfer(ctx, TransferParams{
		CostCenterID: f.cc.ID,
		UserID:       f.userID,
		FromWalletID: a.ID,
		ToWalletID:   b.ID,
		Amount:       d("50.00"),
		Description:  "rent share",
	})
	require.NoError(t, err)

	assertMoney(t, "50.00", f.balance(a.ID))
	assertMoney(t, "50.00", f.balance(b.ID))
	assertMoney(t, "50.00", res.From.Balance)
	assertMoney(t, "50.00", res.To.Balance)

	assert.Equal(t, models.TransactionTypeTransferOut, res.Out.Type)
	assert.Equal(t, "Transfer to B: rent share", res.Out.Description)
	assert.Equal(t, a.ID, *res.Out.WalletID)
	assert.Equal(t, models.TransactionTypeTransferIn, res.In.Type)
	assert.Equal(t, "Transfer from A: rent share", res.In.Description)
	assert.Equal(t, b.ID, *res.In.WalletID)

	assert.Len(t, f.transactions(), before+2)
	assert.Contains(t, f.events.Types(), events.TypeTransferCompleted)
	f.requireReconciled()
}

func TestTransfer_InsufficientFundsLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	a := f.wallet("A", "100.00")
	b := f.wallet("B", "0")
	before := len(f.transactions())
	published := len(f.events.Events())

	_, err := f.ledger.Transfer(ctx, TransferParams{
		CostCenterID: f.cc.ID,
		UserID:       f.userID,
		FromWalletID: a.ID,
		ToWalletID:   b.ID,
		Amount:       d("150.00"),
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assertMoney(t, "100.00", f.balance(a.ID))
	assertMoney(t, "0.00", f.balance(b.ID))
	assert.Len(t, f.transactions(), before)
	assert.Len(t, f.events.Events(), published)
}

func TestTransfer_Rejections(t *testing.T) {
	f := newFixture(t)
	a := f.wallet("A", "100.00")
	b := f.wallet("B", "0")

	foreign := f.foreignWallet()

	tests := []struct {
		name    string
		from    uuid.UUID
		to      uuid.UUID
		amount  string
		wantErr error
	}{
		{"same wallet", a.ID, a.ID, "10.00", ErrSameWallet},
		{"zero amount", a.ID, b.ID, "0", ErrInvalidAmount},
		{"negative amount", a.ID, b.ID, "-1", ErrInvalidAmount},
		{"sub-cent amount", a.ID, b.ID, "1.001", ErrInvalidAmount},
		{"unknown source", uuid.New(), b.ID, "10.00", ErrNotFound},
		{"unknown destination", a.ID, uuid.New(), "10.00", ErrNotFound},
		{"wallet of another cost center", a.ID, foreign.ID, "10.00", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Transfer(ctx, TransferParams{
				CostCenterID: f.cc.ID,
				UserID:       f.userID,
				FromWalletID: tt.from,
				ToWalletID:   tt.to,
				Amount:       d(tt.amount),
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assertMoney(t, "100.00", f.balance(a.ID))
	assertMoney(t, "0.00", f.balance(b.ID))
}

func TestTransfer_StorageFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	a := f.wallet("A", "100.00")
	b := f.wallet("B", "0")
	before := len(f.transactions())

	broken := NewLedger(failingStorage{SQLiteStore: f.store, failOn: models.TransactionTypeTransferIn})
	_, err := broken.Transfer(ctx, TransferParams{
		CostCenterID: f.cc.ID,
		UserID:       f.userID,
		FromWalletID: a.ID,
		ToWalletID:   b.ID,
		Amount:       d("40.00"),
	})
	require.Error(t, err)
	assert.False(t, IsDomainError(err))

	assertMoney(t, "100.00", f.balance(a.ID))
	assertMoney(t, "0.00", f.balance(b.ID))
	assert.Len(t, f.transactions(), before)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	a := f.wallet("A", "100.00")
	b := f.wallet("B", "0")

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
		other     []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Transfer(ctx, TransferParams{
				CostCenterID: f.cc.ID,
				UserID:       f.userID,
				FromWalletID: a.ID,
				ToWalletID:   b.ID,
				Amount:       d("10.00"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case IsDomainError(err):
				refused++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 10, refused)
	assertMoney(t, "0.00", f.balance(a.ID))
	assertMoney(t, "100.00", f.balance(b.ID))
	f.requireReconciled()
}
