package ledger

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/events"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/mcclellann/fredLedger/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2), msgAndArgs...)
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"), store.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// fixture is a ledger on a fresh database with one cost center and a fixed clock.
type fixture struct {
	t      *testing.T
	store  *store.SQLiteStore
	ledger *Ledger
	events *events.Recorder
	now    time.Time
	userID uuid.UUID
	cc     *models.CostCenter
	main   *models.Wallet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		store:  newTestStore(t),
		events: &events.Recorder{},
		now:    time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC),
		userID: uuid.New(),
	}
	f.ledger = NewLedger(f.store, WithPublisher(f.events), WithClock(func() time.Time { return f.now }))

	res, err := f.ledger.CreateCostCenter(ctx, CostCenterParams{Name: "Household", AdminUserID: f.userID})
	require.NoError(t, err)
	f.cc = res.CostCenter
	f.main = res.DefaultWallet
	return f
}

func (f *fixture) wallet(name, opening string) *models.Wallet {
	f.t.Helper()
	w, err := f.ledger.CreateWallet(ctx, WalletParams{
		CostCenterID:   f.cc.ID,
		UserID:         f.userID,
		Name:           name,
		Type:           models.WalletSavings,
		OpeningBalance: d(opening),
	})
	require.NoError(f.t, err)
	return w
}

// foreignWallet creates a wallet in a second cost center of the same database.
func (f *fixture) foreignWallet() *models.Wallet {
	f.t.Helper()
	res, err := f.ledger.CreateCostCenter(ctx, CostCenterParams{Name: "Neighbours", AdminUserID: uuid.New()})
	require.NoError(f.t, err)
	return res.DefaultWallet
}

func (f *fixture) card(name, limit string) *models.CreditCard {
	f.t.Helper()
	c, err := f.ledger.CreateCreditCard(ctx, CreditCardParams{
		CostCenterID: f.cc.ID,
		Name:         name,
		Limit:        d(limit),
		DueDay:       10,
		ClosingDay:   3,
	})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) category(name string, typ models.CategoryType) *models.Category {
	f.t.Helper()
	c, err := f.ledger.CreateCategory(ctx, CategoryParams{CostCenterID: f.cc.ID, Name: name, Type: typ})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) balance(walletID uuid.UUID) decimal.Decimal {
	f.t.Helper()
	w, err := f.store.GetWallet(ctx, walletID)
	require.NoError(f.t, err)
	return w.Balance
}

func (f *fixture) owed(cardID uuid.UUID) decimal.Decimal {
	f.t.Helper()
	c, err := f.store.GetCreditCard(ctx, cardID)
	require.NoError(f.t, err)
	return c.CurrentBalance
}

func (f *fixture) transactions() []*models.Transaction {
	f.t.Helper()
	txs, err := f.store.ListTransactions(ctx, store.TransactionFilter{CostCenterID: f.cc.ID})
	require.NoError(f.t, err)
	return txs
}

func storeFilterForWallet(f *fixture, walletID uuid.UUID) store.TransactionFilter {
	return store.TransactionFilter{CostCenterID: f.cc.ID, WalletID: &walletID}
}

// requireReconciled fails unless every wallet's stored balance matches its log rows.
func (f *fixture) requireReconciled() {
	f.t.Helper()
	report, err := f.ledger.Reconcile(ctx, f.cc.ID)
	require.NoError(f.t, err)
	for _, r := range report {
		require.True(f.t, r.Consistent, "wallet %s stored %s derived %s", r.Name, r.Stored, r.Derived)
	}
}

// failingRepo makes CreateTransaction fail for one transaction type, after earlier writes in the
// same unit of work have already gone through.
type failingRepo struct {
	store.Repo
	failOn models.TransactionType
}

func (r failingRepo) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.Type == r.failOn {
		return assert.AnError
	}
	return r.Repo.CreateTransaction(ctx, t)
}

type failingStorage struct {
	*store.SQLiteStore
	failOn models.TransactionType
}

func (s failingStorage) InTx(ctx context.Context, fn func(store.Repo) error) error {
	return s.SQLiteStore.InTx(ctx, func(r store.Repo) error {
		return fn(failingRepo{Repo: r, failOn: s.failOn})
	})
}

// txOnlyStorage fails every read made outside a unit of work.
type txOnlyStorage struct {
	*store.SQLiteStore
}

func (txOnlyStorage) ListTransactions(context.Context, store.TransactionFilter) ([]*models.Transaction, error) {
	return nil, assert.AnError
}

func (txOnlyStorage) ListCategories(context.Context, uuid.UUID) ([]*models.Category, error) {
	return nil, assert.AnError
}
