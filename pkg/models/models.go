package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CostCenter struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"` // Join code shared with collaborators
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AdminUserID uuid.UUID `json:"admin_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type MembershipRole string

const (
	RoleAdmin        MembershipRole = "admin"
	RoleCollaborator MembershipRole = "collaborator"
)

type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipApproved MembershipStatus = "approved"
	MembershipRejected MembershipStatus = "rejected"
)

type Membership struct {
	ID           uuid.UUID        `json:"id"`
	UserID       uuid.UUID        `json:"user_id"`
	CostCenterID uuid.UUID        `json:"cost_center_id"`
	Role         MembershipRole   `json:"role"`
	Status       MembershipStatus `json:"status"`
	RequestedAt  time.Time        `json:"requested_at"`
	ReviewedAt   *time.Time       `json:"reviewed_at,omitempty"`
}

// UserCostCenter is a cost center as seen by one member.
type UserCostCenter struct {
	CostCenter
	Role             MembershipRole   `json:"role"`
	MembershipStatus MembershipStatus `json:"membership_status"`
}

type WalletType string

const (
	WalletChecking   WalletType = "checking"
	WalletSavings    WalletType = "savings"
	WalletCash       WalletType = "cash"
	WalletInvestment WalletType = "investment"
)

// Valid reports whether t is one of the known wallet types.
func (t WalletType) Valid() bool {
	switch t {
	case WalletChecking, WalletSavings, WalletCash, WalletInvestment:
		return true
	}
	return false
}

type Wallet struct {
	ID           uuid.UUID       `json:"id"`
	CostCenterID uuid.UUID       `json:"cost_center_id"`
	Name         string          `json:"name"`
	Type         WalletType      `json:"type"`
	Balance      decimal.Decimal `json:"balance"` // Maintained only by the balance ledger
	IsDefault    bool            `json:"is_default"`
	Color        string          `json:"color"`
	Icon         string          `json:"icon"`
	CreatedAt    time.Time       `json:"created_at"`
}

type CreditCard struct {
	ID             uuid.UUID       `json:"id"`
	CostCenterID   uuid.UUID       `json:"cost_center_id"`
	Name           string          `json:"name"`
	Limit          decimal.Decimal `json:"limit"`
	CurrentBalance decimal.Decimal `json:"current_balance"` // Amount owed, 0 <= current_balance <= limit
	DueDay         int             `json:"due_day"`
	ClosingDay     int             `json:"closing_day"`
	Color          string          `json:"color"`
	Icon           string          `json:"icon"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Available returns the unused part of the card's limit.
func (c *CreditCard) Available() decimal.Decimal {
	return c.Limit.Sub(c.CurrentBalance)
}

type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

type Category struct {
	ID           uuid.UUID    `json:"id"`
	CostCenterID uuid.UUID    `json:"cost_center_id"`
	Name         string       `json:"name"`
	Type         CategoryType `json:"type"`
	Color        string       `json:"color,omitempty"`
	Icon         string       `json:"icon,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

type TransactionType string

const (
	TransactionTypeIncome        TransactionType = "income"
	TransactionTypeExpense       TransactionType = "expense"
	TransactionTypeTransferIn    TransactionType = "transfer_in"
	TransactionTypeTransferOut   TransactionType = "transfer_out"
	TransactionTypeCreditExpense TransactionType = "credit_expense"
	TransactionTypeBillPayment   TransactionType = "bill_payment"
)

// WalletSign is the direction a transaction of this type moves its wallet's balance:
// +1 for credits, -1 for debits and 0 when the type does not touch a wallet.
func (t TransactionType) WalletSign() int {
	switch t {
	case TransactionTypeIncome, TransactionTypeTransferIn:
		return 1
	case TransactionTypeExpense, TransactionTypeTransferOut, TransactionTypeBillPayment:
		return -1
	}
	return 0
}

type Transaction struct {
	ID                 uuid.UUID       `json:"id"`
	CostCenterID       uuid.UUID       `json:"cost_center_id"`
	UserID             uuid.UUID       `json:"user_id"`
	WalletID           *uuid.UUID      `json:"wallet_id,omitempty"`
	CreditCardID       *uuid.UUID      `json:"credit_card_id,omitempty"`
	Type               TransactionType `json:"type"`
	Description        string          `json:"description"`
	Amount             decimal.Decimal `json:"amount"` // Always positive, direction comes from Type
	CategoryID         *uuid.UUID      `json:"category_id,omitempty"`
	Date               time.Time       `json:"date"`
	InstallmentID      *uuid.UUID      `json:"installment_id,omitempty"`
	CurrentInstallment *int            `json:"current_installment,omitempty"`
	TotalInstallments  *int            `json:"total_installments,omitempty"`
	IsFixed            bool            `json:"is_fixed"`
	Notes              string          `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

type InstallmentStatus string

const (
	InstallmentActive    InstallmentStatus = "active"
	InstallmentCompleted InstallmentStatus = "completed"
	InstallmentCancelled InstallmentStatus = "cancelled"
)

type Installment struct {
	ID                uuid.UUID         `json:"id"`
	CostCenterID      uuid.UUID         `json:"cost_center_id"`
	WalletID          uuid.UUID         `json:"wallet_id"`
	CreditCardID      *uuid.UUID        `json:"credit_card_id,omitempty"`
	Description       string            `json:"description"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	TotalInstallments int               `json:"total_installments"`
	PaidInstallments  int               `json:"paid_installments"`
	StartDate         time.Time         `json:"start_date"`
	Status            InstallmentStatus `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

type InstallmentPayment struct {
	ID            uuid.UUID       `json:"id"`
	InstallmentID uuid.UUID       `json:"installment_id"`
	PaymentNumber int             `json:"payment_number"` // 1-based
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	PaidDate      *time.Time      `json:"paid_date,omitempty"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}
