package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// TransactionFilter narrows ListTransactions. Zero From/To leave that side open; To is exclusive.
type TransactionFilter struct {
	CostCenterID uuid.UUID
	WalletID     *uuid.UUID
	From         time.Time
	To           time.Time
}

// Repo defines the database operations available both directly and inside a unit of work.
type Repo interface {
	CreateCostCenter(ctx context.Context, cc *models.CostCenter) error
	GetCostCenter(ctx context.Context, id uuid.UUID) (*models.CostCenter, error)
	GetCostCenterByCode(ctx context.Context, code string) (*models.CostCenter, error)
	ListCostCentersForUser(ctx context.Context, userID uuid.UUID) ([]*models.UserCostCenter, error)

	CreateMembership(ctx context.Context, m *models.Membership) error
	GetMembership(ctx context.Context, id uuid.UUID) (*models.Membership, error)
	UpdateMembership(ctx context.Context, m *models.Membership) error
	ListMemberships(ctx context.Context, costCenterID uuid.UUID) ([]*models.Membership, error)

	CreateWallet(ctx context.Context, w *models.Wallet) error
	GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	GetDefaultWallet(ctx context.Context, costCenterID uuid.UUID) (*models.Wallet, error)
	ListWallets(ctx context.Context, costCenterID uuid.UUID) ([]*models.Wallet, error)
	SetWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	CountWalletReferences(ctx context.Context, id uuid.UUID) (int, error)
	DeleteWallet(ctx context.Context, id uuid.UUID) error

	CreateCreditCard(ctx context.Context, c *models.CreditCard) error
	GetCreditCard(ctx context.Context, id uuid.UUID) (*models.CreditCard, error)
	ListCreditCards(ctx context.Context, costCenterID uuid.UUID) ([]*models.CreditCard, error)
	SetCreditCardBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error

	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListCategories(ctx context.Context, costCenterID uuid.UUID) ([]*models.Category, error)

	CreateTransaction(ctx context.Context, t *models.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]*models.Transaction, error)
	UpdateTransactionDetails(ctx context.Context, id uuid.UUID, description string, date time.Time, notes string) error

	CreateInstallment(ctx context.Context, i *models.Installment) error
	GetInstallment(ctx context.Context, id uuid.UUID) (*models.Installment, error)
	ListInstallments(ctx context.Context, costCenterID uuid.UUID, status models.InstallmentStatus) ([]*models.Installment, error)
	UpdateInstallmentProgress(ctx context.Context, id uuid.UUID, paid int, status models.InstallmentStatus) error

	CreateInstallmentPayment(ctx context.Context, p *models.InstallmentPayment) error
	GetInstallmentPayment(ctx context.Context, id uuid.UUID) (*models.InstallmentPayment, error)
	ListInstallmentPayments(ctx context.Context, installmentID uuid.UUID) ([]*models.InstallmentPayment, error)
	UpdateInstallmentPayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paidDate *time.Time) error
	// ListUnpaidPaymentsDueBefore returns pending and overdue payments of active installments in the
	// cost center whose due date is before the given time, ordered by due date.
	ListUnpaidPaymentsDueBefore(ctx context.Context, costCenterID uuid.UUID, before time.Time) ([]*models.InstallmentPayment, error)
	// MarkPaymentsOverdue flips pending payments due before the given time to overdue.
	MarkPaymentsOverdue(ctx context.Context, before time.Time) (int64, error)
}

// Storage is a Repo that can run a function as a single atomic unit of work.
type Storage interface {
	Repo

	// InTx runs fn against a Repo bound to one database transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Repo) error) error

	Close() error
}
