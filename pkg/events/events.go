// Package events publishes notifications about committed ledger operations.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeWalletCredited     = "wallet.credited"
	TypeWalletDebited      = "wallet.debited"
	TypeTransferCompleted  = "transfer.completed"
	TypeCardCharged        = "credit_card.charged"
	TypeBillPaid           = "credit_card.bill_paid"
	TypeInstallmentCreated = "installment.created"
	TypeInstallmentPaid    = "installment.payment_paid"
	TypeInstallmentClosed  = "installment.completed"
	TypeInstallmentCancel  = "installment.cancelled"
)

// Event is published after the unit of work it describes has committed.
type Event struct {
	ID           uuid.UUID       `json:"id"`
	Type         string          `json:"type"`
	CostCenterID uuid.UUID       `json:"cost_center_id"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Data         json.RawMessage `json:"data"`
}

// New builds an event with a fresh id, marshalling data as its payload.
func New(eventType string, costCenterID uuid.UUID, at time.Time, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:           uuid.New(),
		Type:         eventType,
		CostCenterID: costCenterID,
		OccurredAt:   at.UTC(),
		Data:         raw,
	}, nil
}

// Publisher delivers events somewhere. Publish must not be called inside a database transaction.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
