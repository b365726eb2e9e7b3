package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "store.db"), Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var testNow = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

func seedCostCenter(t *testing.T, s *SQLiteStore) *models.CostCenter {
	t.Helper()
	cc := &models.CostCenter{ID: uuid.New(), Code: "2025" + uuid.NewString()[:5], Name: "Household", AdminUserID: uuid.New(), CreatedAt: testNow}
	require.NoError(t, s.CreateCostCenter(ctx, cc))
	return cc
}

func seedWallet(t *testing.T, s *SQLiteStore, ccID uuid.UUID, balance string, isDefault bool) *models.Wallet {
	t.Helper()
	w := &models.Wallet{
		ID:           uuid.New(),
		CostCenterID: ccID,
		Name:         "Wallet",
		Type:         models.WalletChecking,
		Balance:      decimal.RequireFromString(balance),
		IsDefault:    isDefault,
		Color:        "#000000",
		Icon:         "wallet",
		CreatedAt:    testNow,
	}
	require.NoError(t, s.CreateWallet(ctx, w))
	return w
}

func TestNewSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first, err := NewSQLiteStore(path, Options{Logger: logger})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path, Options{Logger: logger})
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSQLiteStore_CostCenterAndMemberships(t *testing.T) {
	s := newTestStore(t)
	cc := seedCostCenter(t, s)

	got, err := s.GetCostCenterByCode(ctx, cc.Code)
	require.NoError(t, err)
	assert.Equal(t, cc.ID, got.ID)
	assert.Equal(t, cc.AdminUserID, got.AdminUserID)

	m := &models.Membership{ID: uuid.New(), UserID: uuid.New(), CostCenterID: cc.ID, Role: models.RoleCollaborator, Status: models.MembershipPending, RequestedAt: testNow}
	require.NoError(t, s.CreateMembership(ctx, m))

	reviewed := testNow.Add(time.Hour)
	m.Status, m.ReviewedAt = models.MembershipApproved, &reviewed
	require.NoError(t, s.UpdateMembership(ctx, m))

	fetched, err := s.GetMembership(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipApproved, fetched.Status)
	require.NotNil(t, fetched.ReviewedAt)
	assert.True(t, reviewed.Equal(*fetched.ReviewedAt))

	dup := &models.Membership{ID: uuid.New(), UserID: m.UserID, CostCenterID: cc.ID, Role: models.RoleCollaborator, Status: models.MembershipPending, RequestedAt: testNow}
	assert.Error(t, s.CreateMembership(ctx, dup), "one membership per user and cost center")

	_, err = s.GetCostCenter(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListCostCentersForUser(t *testing.T) {
	s := newTestStore(t)
	user := uuid.New()

	home := seedCostCenter(t, s)
	beach := &models.CostCenter{ID: uuid.New(), Code: "BEACH1", Name: "Beach house", AdminUserID: uuid.New(), CreatedAt: testNow.Add(time.Hour)}
	require.NoError(t, s.CreateCostCenter(ctx, beach))
	seedCostCenter(t, s)

	require.NoError(t, s.CreateMembership(ctx, &models.Membership{ID: uuid.New(), UserID: user, CostCenterID: home.ID,
		Role: models.RoleAdmin, Status: models.MembershipApproved, RequestedAt: testNow}))
	require.NoError(t, s.CreateMembership(ctx, &models.Membership{ID: uuid.New(), UserID: user, CostCenterID: beach.ID,
		Role: models.RoleCollaborator, Status: models.MembershipPending, RequestedAt: testNow}))

	centers, err := s.ListCostCentersForUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, centers, 2)

	assert.Equal(t, home.ID, centers[0].ID)
	assert.Equal(t, home.Code, centers[0].Code)
	assert.Equal(t, models.RoleAdmin, centers[0].Role)
	assert.Equal(t, models.MembershipApproved, centers[0].MembershipStatus)

	assert.Equal(t, beach.ID, centers[1].ID)
	assert.Equal(t, "Beach house", centers[1].Name)
	assert.True(t, beach.CreatedAt.Equal(centers[1].CreatedAt))
	assert.Equal(t, models.RoleCollaborator, centers[1].Role)
	assert.Equal(t, models.MembershipPending, centers[1].MembershipStatus)

	none, err := s.ListCostCentersForUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_WalletBalanceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	cc := seedCostCenter(t, s)
	w := seedWallet(t, s, cc.ID, "0.10", true)

	require.NoError(t, s.SetWalletBalance(ctx, w.ID, decimal.RequireFromString("0.30")))
	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.30", got.Balance.StringFixed(2))
	assert.True(t, got.IsDefault)

	def, err := s.GetDefaultWallet(ctx, cc.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, def.ID)

	err = s.SetWalletBalance(ctx, uuid.New(), decimal.Zero)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_OneDefaultWalletPerCostCenter(t *testing.T) {
	s := newTestStore(t)
	cc := seedCostCenter(t, s)
	seedWallet(t, s, cc.ID, "0", true)
	seedWallet(t, s, cc.ID, "0", false)

	second := &models.Wallet{ID: uuid.New(), CostCenterID: cc.ID, Name: "Other", Type: models.WalletCash, IsDefault: true, CreatedAt: testNow}
	assert.Error(t, s.CreateWallet(ctx, second))

	wallets, err := s.ListWallets(ctx, cc.ID)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.True(t, wallets[0].IsDefault, "default wallet is listed first")
}

func TestSQLiteStore_InTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	cc := seedCostCenter(t, s)
	w := seedWallet(t, s, cc.ID, "100", true)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(r Repo) error {
		require.NoError(t, r.SetWalletBalance(ctx, w.ID, decimal.RequireFromString("1")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.Balance.StringFixed(2))
}

func TestSQLiteStore_InTxRollsBackOnPanic(t *testing.T) {
	s := newTestStore(t)
	cc := seedCostCenter(t, s)
	w := seedWallet(t, s, cc.ID, "100", true)

	assert.Panics(t, func() {
		_ = s.InTx(ctx, func(r Repo) error {
			if err := r.SetWalletBalance(ctx, w.ID, decimal.Zero); err != nil {
				return err
			}
			panic("halfway")
		})
	})

	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.Balance.StringFixed(2))
}

func TestSQLiteStore_Transactions(t *testing.T) {
	s := newTestStore(t)
	cc := seedCostCenter(t, s)
	w := seedWallet(t, s, cc.ID, "0", true)

	current, total := 2, 5
	salary := &models.Transaction{
		ID: uuid.New(), CostCenterID: cc.ID, UserID: uuid.New(), WalletID: &w.ID, Type: models.TransactionTypeIncome,
		Description: "Salary", Amount: decimal.RequireFromString("1500.25"), Date: testNow.AddDate(0, 0, -20), CreatedAt: testNow,
	}
	linked := &models.Transaction{
		ID: uuid.New(), CostCenterID: cc.ID, UserID: uuid.New(), WalletID: &w.ID, Type: models.TransactionTypeExpense,
		Description: "Chair", Amount: decimal.RequireFromString("20"), Date: testNow, CurrentInstallment: &current,
		TotalInstallments: &total, IsFixed: true, Notes: "note", CreatedAt: testNow,
	}
	require.NoError(t, s.CreateTransaction(ctx, salary))
	require.NoError(t, s.CreateTransaction(ctx, linked))

	got, err := s.GetTransaction(ctx, linked.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, *got.WalletID)
	assert.Nil(t, got.CreditCardID)
	assert.Nil(t, got.CategoryID)
	assert.Equal(t, 2, *got.CurrentInstallment)
	assert.Equal(t, 5, *got.TotalInstallments)
	assert.True(t, got.IsFixed)
	assert.Equal(t, "note", got.Notes)

	all, err := s.ListTransactions(ctx, TransactionFilter{CostCenterID: cc.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, linked.ID, all[0].ID, "newest first")

	recent, err := s.ListTransactions(ctx, TransactionFilter{CostCenterID: cc.ID, From: testNow.AddDate(0, 0, -1)})
	require.NoError(t, err)
	require.Len(t, recent, 1)

	older, err := s.ListTransactions(ctx, TransactionFilter{CostCenterID: cc.ID, To: testNow})
	require.NoError(t, err, "to is exclusive")
	require.Len(t, older, 1)
	assert.Equal(t, salary.ID, older[0].ID)

	refs, err := s.CountWalletReferences(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, refs)

	when := testNow.AddDate(0, 0, -3)
	require.NoError(t, s.UpdateTransactionDetails(ctx, linked.ID, "Desk chair", when, ""))
	got, err = s.GetTransaction(ctx, linked.ID)
	require.NoError(t, err)
	assert.Equal(t, "Desk chair", got.Description)
	assert.True(t, when.Equal(got.Date))
	assert.Equal(t, "20.00", got.Amount.StringFixed(2))

	assert.ErrorIs(t, s.UpdateTransactionDetails(ctx, uuid.New(), "x", when, ""), ErrNotFound)
}

func TestSQLiteStore_InstallmentPayments(t *testing.T) {
	s := newTestStore(t)
	cc := seedCostCenter(t, s)
	w := seedWallet(t, s, cc.ID, "0", true)

	inst := &models.Installment{
		ID: uuid.New(), CostCenterID: cc.ID, WalletID: w.ID, Description: "Fridge",
		TotalAmount: decimal.RequireFromString("90"), TotalInstallments: 3, StartDate: testNow, Status: models.InstallmentActive, CreatedAt: testNow,
	}
	require.NoError(t, s.CreateInstallment(ctx, inst))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateInstallmentPayment(ctx, &models.InstallmentPayment{
			ID: uuid.New(), InstallmentID: inst.ID, PaymentNumber: i + 1, Amount: decimal.RequireFromString("30"),
			DueDate: testNow.AddDate(0, i, 0), Status: models.PaymentPending, CreatedAt: testNow,
		}))
	}

	payments, err := s.ListInstallmentPayments(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, payments, 3)
	assert.Equal(t, 1, payments[0].PaymentNumber)
	assert.Nil(t, payments[0].PaidDate)

	due, err := s.ListUnpaidPaymentsDueBefore(ctx, cc.ID, testNow.AddDate(0, 1, 1))
	require.NoError(t, err)
	assert.Len(t, due, 2)

	paidAt := testNow
	require.NoError(t, s.UpdateInstallmentPayment(ctx, payments[0].ID, models.PaymentPaid, &paidAt))
	require.NoError(t, s.UpdateInstallmentProgress(ctx, inst.ID, 1, models.InstallmentActive))

	due, err = s.ListUnpaidPaymentsDueBefore(ctx, cc.ID, testNow.AddDate(0, 1, 1))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, payments[1].ID, due[0].ID)

	n, err := s.MarkPaymentsOverdue(ctx, testNow.AddDate(0, 1, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "only pending payments become overdue")

	got, err := s.GetInstallmentPayment(ctx, payments[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentOverdue, got.Status)

	require.NoError(t, s.UpdateInstallmentProgress(ctx, inst.ID, 1, models.InstallmentCancelled))
	due, err = s.ListUnpaidPaymentsDueBefore(ctx, cc.ID, testNow.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, due, "cancelled installments have no upcoming payments")

	active, err := s.ListInstallments(ctx, cc.ID, models.InstallmentActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.Error(t, s.UpdateInstallmentProgress(ctx, inst.ID, 4, models.InstallmentActive), "paid cannot exceed total")
}
