package infrastructure

import (
	"fmt"

	"finengine/events"
)

// DomainEventStream is the JetStream stream carrying every engine event
const DomainEventStream = "finengine_events"

var subjectsByType = map[events.EventType]string{
	events.EventTypeBalanceChange:      "users.balance_changed",
	events.EventTypeUserCreated:        "users.created",
	events.EventTypeInvestmentCreated:  "investments.created",
	events.EventTypeWithdrawalCreated:  "withdrawals.created",
	events.EventTypeSpinDrawn:          "spins.drawn",
	events.EventTypePrizeSetChanged:    "spins.prizes_changed",
	events.EventTypeEntityStateChanged: "workflow.state_changed",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject. State
// changes get the entity type as a suffix so consumers can filter by it.
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if changed, ok := event.(events.EntityStateChangedEvent); ok {
		return fmt.Sprintf("%s.%s", subjectsByType[events.EventTypeEntityStateChanged], changed.EntityType)
	}
	if subject, ok := subjectsByType[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("unknown.%s", event.Type())
}

// GetAllSubjects returns the subject filters the domain stream must cover
func (m *EventSubjectMapper) GetAllSubjects() []string {
	subjects := make([]string, 0, len(events.AllEventTypes))
	for _, eventType := range events.AllEventTypes {
		subject := subjectsByType[eventType]
		if eventType == events.EventTypeEntityStateChanged {
			subject += ".*"
		}
		subjects = append(subjects, subject)
	}
	return subjects
}
