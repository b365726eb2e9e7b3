package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/events"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) charge(cardID uuid.UUID, amount string) (*ChargeResult, error) {
	return f.ledger.ChargeForPurchase(ctx, ChargeParams{
		CostCenterID: f.cc.ID,
		UserID:       f.userID,
		CardID:       cardID,
		Amount:       d(amount),
		Description:  "Groceries",
	})
}

func TestCreateCreditCard_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name    string
		params  CreditCardParams
		wantErr error
	}{
		{"missing name", CreditCardParams{Limit: d("100"), DueDay: 1, ClosingDay: 1}, ErrInvalidInput},
		{"zero limit", CreditCardParams{Name: "Visa", Limit: d("0"), DueDay: 1, ClosingDay: 1}, ErrInvalidAmount},
		{"due day", CreditCardParams{Name: "Visa", Limit: d("100"), DueDay: 32, ClosingDay: 1}, ErrInvalidInput},
		{"closing day", CreditCardParams{Name: "Visa", Limit: d("100"), DueDay: 1, ClosingDay: 0}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.params.CostCenterID = f.cc.ID
			_, err := f.ledger.CreateCreditCard(ctx, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := f.ledger.CreateCreditCard(ctx, CreditCardParams{CostCenterID: uuid.New(), Name: "Visa", Limit: d("100"), DueDay: 1, ClosingDay: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChargeForPurchase_LimitBoundary(t *testing.T) {
	f := newFixture(t)
	c := f.card("Visa", "500.00")

	_, err := f.charge(c.ID, "450.00")
	require.NoError(t, err)

	res, err := f.charge(c.ID, "50.00")
	require.NoError(t, err, "charging exactly up to the limit is allowed")
	assertMoney(t, "500.00", res.Card.CurrentBalance)
	assertMoney(t, "0.00", res.Card.Available())
	assert.Equal(t, models.TransactionTypeCreditExpense, res.Transaction.Type)
	assert.Equal(t, c.ID, *res.Transaction.CreditCardID)
	assert.Nil(t, res.Transaction.WalletID)

	before := len(f.transactions())
	_, err = f.charge(c.ID, "0.01")
	require.ErrorIs(t, err, ErrCreditLimitExceeded)
	assertMoney(t, "500.00", f.owed(c.ID))
	assert.Len(t, f.transactions(), before)
}

func TestChargeForPurchase_Category(t *testing.T) {
	f := newFixture(t)
	c := f.card("Visa", "500.00")
	food := f.category("Food", models.CategoryExpense)
	salary := f.category("Salary", models.CategoryIncome)

	res, err := f.ledger.ChargeForPurchase(ctx, ChargeParams{
		CostCenterID: f.cc.ID, UserID: f.userID, CardID: c.ID, Amount: d("12.50"), Description: "Lunch", CategoryID: &food.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, food.ID, *res.Transaction.CategoryID)

	_, err = f.ledger.ChargeForPurchase(ctx, ChargeParams{
		CostCenterID: f.cc.ID, UserID: f.userID, CardID: c.ID, Amount: d("12.50"), Description: "Lunch", CategoryID: &salary.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	missing := uuid.New()
	_, err = f.ledger.ChargeForPurchase(ctx, ChargeParams{
		CostCenterID: f.cc.ID, UserID: f.userID, CardID: c.ID, Amount: d("12.50"), Description: "Lunch", CategoryID: &missing,
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assertMoney(t, "12.50", f.owed(c.ID))
}

func TestPayBill(t *testing.T) {
	f := newFixture(t)
	c := f.card("Visa", "500.00")
	w := f.wallet("Checking", "100.00")
	_, err := f.charge(c.ID, "30.00")
	require.NoError(t, err)

	res, err := f.ledger.PayBill(ctx, PayBillParams{
		CostCenterID: f.cc.ID, UserID: f.userID, CardID: c.ID, WalletID: w.ID, Amount: d("20.00"),
	})
	require.NoError(t, err)

	assertMoney(t, "10.00", res.Card.CurrentBalance)
	assertMoney(t, "80.00", res.Wallet.Balance)
	assertMoney(t, "10.00", f.owed(c.ID))
	assertMoney(t, "80.00", f.balance(w.ID))
	assert.Equal(t, models.TransactionTypeBillPayment, res.Transaction.Type)
	assert.Equal(t, "Card payment Visa", res.Transaction.Description)
	assert.Equal(t, w.ID, *res.Transaction.WalletID)
	assert.Equal(t, c.ID, *res.Transaction.CreditCardID)
	assert.Contains(t, f.events.Types(), events.TypeBillPaid)
	f.requireReconciled()
}

func TestPayBill_Rejections(t *testing.T) {
	f := newFixture(t)
	c := f.card("Visa", "500.00")
	rich := f.wallet("Rich", "100.00")
	poor := f.wallet("Poor", "10.00")
	_, err := f.charge(c.ID, "30.00")
	require.NoError(t, err)
	before := len(f.transactions())

	tests := []struct {
		name    string
		wallet  uuid.UUID
		amount  string
		wantErr error
	}{
		{"more than owed", rich.ID, "50.00", ErrInvalidAmount},
		{"wallet too small", poor.ID, "20.00", ErrInsufficientFunds},
		{"zero", rich.ID, "0", ErrInvalidAmount},
		{"unknown wallet", uuid.New(), "10.00", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.PayBill(ctx, PayBillParams{
				CostCenterID: f.cc.ID, UserID: f.userID, CardID: c.ID, WalletID: tt.wallet, Amount: d(tt.amount),
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assertMoney(t, "30.00", f.owed(c.ID))
	assertMoney(t, "100.00", f.balance(rich.ID))
	assertMoney(t, "10.00", f.balance(poor.ID))
	assert.Len(t, f.transactions(), before)
}

func TestPayBill_FullBalance(t *testing.T) {
	f := newFixture(t)
	c := f.card("Visa", "500.00")
	w := f.wallet("Checking", "100.00")
	_, err := f.charge(c.ID, "30.00")
	require.NoError(t, err)

	res, err := f.ledger.PayBill(ctx, PayBillParams{
		CostCenterID: f.cc.ID, UserID: f.userID, CardID: c.ID, WalletID: w.ID, Amount: d("30.00"),
	})
	require.NoError(t, err)
	assertMoney(t, "0.00", res.Card.CurrentBalance)
	assertMoney(t, "500.00", res.Card.Available())
}
