package events

import (
	"context"
	"sync"

	"finengine/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange      EventType = "balance_change"
	EventTypeUserCreated        EventType = "user_created"
	EventTypeInvestmentCreated  EventType = "investment_created"
	EventTypeWithdrawalCreated  EventType = "withdrawal_created"
	EventTypeSpinDrawn          EventType = "spin_drawn"
	EventTypePrizeSetChanged    EventType = "prize_set_changed"
	EventTypeEntityStateChanged EventType = "entity_state_changed"
)

// AllEventTypes lists every event type the engine emits
var AllEventTypes = []EventType{
	EventTypeBalanceChange,
	EventTypeUserCreated,
	EventTypeInvestmentCreated,
	EventTypeWithdrawalCreated,
	EventTypeSpinDrawn,
	EventTypePrizeSetChanged,
	EventTypeEntityStateChanged,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID         int64  `json:"user_id"`
	OldBalance     int64  `json:"old_balance"`
	NewBalance     int64  `json:"new_balance"`
	ChangeAmount   int64  `json:"change_amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new user creation
type UserCreatedEvent struct {
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	InitialBalance int64  `json:"initial_balance"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// InvestmentCreatedEvent is emitted when a user opens a pending investment
type InvestmentCreatedEvent struct {
	InvestmentID int64 `json:"investment_id"`
	UserID       int64 `json:"user_id"`
	ProductID    int64 `json:"product_id"`
	Amount       int64 `json:"amount"`
}

func (e InvestmentCreatedEvent) Type() EventType {
	return EventTypeInvestmentCreated
}

// WithdrawalCreatedEvent is emitted when a user requests a withdrawal
type WithdrawalCreatedEvent struct {
	WithdrawalID int64 `json:"withdrawal_id"`
	UserID       int64 `json:"user_id"`
	Amount       int64 `json:"amount"`
	Charge       int64 `json:"charge"`
}

func (e WithdrawalCreatedEvent) Type() EventType {
	return EventTypeWithdrawalCreated
}

// SpinDrawnEvent is emitted when a draw produces a pending spin result
type SpinDrawnEvent struct {
	SpinResultID int64            `json:"spin_result_id"`
	UserID       int64            `json:"user_id"`
	PrizeID      int64            `json:"prize_id"`
	PrizeType    models.PrizeType `json:"prize_type"`
	PrizeAmount  int64            `json:"prize_amount"`
}

func (e SpinDrawnEvent) Type() EventType {
	return EventTypeSpinDrawn
}

// PrizeSetChangedEvent is emitted after the prize set was edited and its
// percentages recalculated
type PrizeSetChangedEvent struct {
	ActivePrizes int   `json:"active_prizes"`
	TotalWeight  int64 `json:"total_weight"`
}

func (e PrizeSetChangedEvent) Type() EventType {
	return EventTypePrizeSetChanged
}

// EntityStateChangedEvent represents an admin action that moved an entity
// from one status to another
type EntityStateChangedEvent struct {
	EntityType models.EntityType `json:"entity_type"`
	EntityID   int64             `json:"entity_id"`
	UserID     int64             `json:"user_id"`
	Action     string            `json:"action"`
	OldStatus  string            `json:"old_status"`
	NewStatus  string            `json:"new_status"`
	ActorID    string            `json:"actor_id"`
	Reference  string            `json:"reference"`
}

func (e EntityStateChangedEvent) Type() EventType {
	return EventTypeEntityStateChanged
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously and a panicking handler is logged, not propagated.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until the
// database commit succeeds.
type TransactionalBus struct {
	real    *Bus
	mu      sync.Mutex
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes e until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, e)
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Stashed event until commit")
}

// Pending returns a copy of the stashed events
func (b *TransactionalBus) Pending() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, len(b.pending))
	copy(out, b.pending)
	return out
}

// Flush emits the stashed events. Called after a successful commit.
func (b *TransactionalBus) Flush() {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	log.WithField("pendingEventCount", len(pending)).Debug("Flushing events after commit")

	if b.real == nil {
		return
	}
	// Emission outlives the request context that drove the transaction
	eventCtx := context.Background()
	for _, ev := range pending {
		b.real.Emit(eventCtx, ev)
	}
}

// Discard drops the stashed events. Called on rollback.
func (b *TransactionalBus) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) > 0 {
		log.WithField("discardedEventCount", len(b.pending)).Debug("Discarding events after rollback")
	}
	b.pending = nil
}
