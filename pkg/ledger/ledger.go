// Package ledger keeps wallet balances, credit card balances, the transaction log and installment
// schedules consistent. Every mutating operation runs as one unit of work against the store.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/events"
	"github.com/mcclellann/fredLedger/pkg/logging"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/mcclellann/fredLedger/pkg/store"
	"github.com/shopspring/decimal"
)

const (
	MinInstallments = 2
	MaxInstallments = 60

	// MaxUpcomingDays bounds the look-ahead window of ListUpcomingPayments.
	MaxUpcomingDays = 3660

	defaultUpcomingDays = 30
)

// Ledger handles the business logic for wallets, credit cards, installments and transactions.
type Ledger struct {
	storage      store.Storage
	publisher    events.Publisher
	logger       *logging.Logger
	now          func() time.Time
	upcomingDays int
}

type Option func(*Ledger)

// WithPublisher sets where post-commit events go. The default discards them.
func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithLogger(logger *logging.Logger) Option {
	return func(l *Ledger) { l.logger = logger.WithComponent(logging.ComponentLedger) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithUpcomingDefaultDays sets the window used by ListUpcomingPayments when none is given.
func WithUpcomingDefaultDays(days int) Option {
	return func(l *Ledger) {
		if days > 0 {
			l.upcomingDays = days
		}
	}
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, opts ...Option) *Ledger {
	l := &Ledger{
		storage:      s,
		publisher:    events.Discard{},
		logger:       logging.Discard(),
		now:          time.Now,
		upcomingDays: defaultUpcomingDays,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// validateAmount accepts strictly positive amounts with at most two fractional digits.
func validateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, amount)
	}
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("%w: %s has more than two decimal places", ErrInvalidAmount, amount)
	}
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (l *Ledger) walletIn(ctx context.Context, repo store.Repo, costCenterID, walletID uuid.UUID) (*models.Wallet, error) {
	w, err := repo.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.CostCenterID != costCenterID {
		return nil, fmt.Errorf("wallet %s: %w", walletID, ErrNotFound)
	}
	return w, nil
}

func (l *Ledger) cardIn(ctx context.Context, repo store.Repo, costCenterID, cardID uuid.UUID) (*models.CreditCard, error) {
	c, err := repo.GetCreditCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if c.CostCenterID != costCenterID {
		return nil, fmt.Errorf("credit card %s: %w", cardID, ErrNotFound)
	}
	return c, nil
}

// checkCategory verifies that an optional category belongs to the cost center and fits the
// direction of the money movement.
func (l *Ledger) checkCategory(ctx context.Context, repo store.Repo, costCenterID uuid.UUID, categoryID *uuid.UUID, want models.CategoryType) error {
	if categoryID == nil {
		return nil
	}
	c, err := repo.GetCategory(ctx, *categoryID)
	if err != nil {
		return err
	}
	if c.CostCenterID != costCenterID {
		return fmt.Errorf("category %s: %w", *categoryID, ErrNotFound)
	}
	if c.Type != want {
		return fmt.Errorf("%w: category %q is an %s category", ErrInvalidInput, c.Name, c.Type)
	}
	return nil
}

// publish sends an event after commit. Delivery is best effort: the ledger state is already
// durable, so failures are logged and swallowed.
func (l *Ledger) publish(ctx context.Context, eventType string, costCenterID uuid.UUID, data any) {
	e, err := events.New(eventType, costCenterID, l.now(), data)
	if err == nil {
		err = l.publisher.Publish(ctx, e)
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to publish ledger event", "type", eventType, "error", err)
	}
}

// rejected logs a failed operation at a level matching who caused it.
func (l *Ledger) rejected(ctx context.Context, op string, err error, args ...any) {
	args = append(args, "operation", op, "error", err)
	if IsDomainError(err) {
		l.logger.WarnContext(ctx, "Ledger operation rejected", args...)
		return
	}
	l.logger.ErrorContext(ctx, "Ledger operation failed", args...)
}

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	return value, nil
}
