package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"finengine/events"
	"finengine/models"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type MockPublishRecorder struct {
	mock.Mock
}

func (m *MockPublishRecorder) RecordNATSMessagePublished(eventType string) {
	m.Called(eventType)
}

func TestEventSubjectMapper_MapEventToSubject(t *testing.T) {
	mapper := NewEventSubjectMapper()

	tests := []struct {
		name    string
		event   events.Event
		subject string
	}{
		{"balance change", events.BalanceChangeEvent{UserID: 1}, "users.balance_changed"},
		{"user created", events.UserCreatedEvent{UserID: 1}, "users.created"},
		{"withdrawal created", events.WithdrawalCreatedEvent{}, "withdrawals.created"},
		{"spin drawn", events.SpinDrawnEvent{}, "spins.drawn"},
		{
			"state change carries entity type",
			events.EntityStateChangedEvent{EntityType: models.EntityTypeWithdrawal},
			"workflow.state_changed.withdrawal",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.subject, mapper.MapEventToSubject(tt.event))
		})
	}
}

func TestEventSubjectMapper_GetAllSubjects(t *testing.T) {
	subjects := NewEventSubjectMapper().GetAllSubjects()

	assert.Len(t, subjects, len(events.AllEventTypes))
	assert.Contains(t, subjects, "workflow.state_changed.*")
	assert.Contains(t, subjects, "users.created")
}

func TestNATSEventPublisher_PublishesEnvelope(t *testing.T) {
	publisher := new(MockMessagePublisher)
	recorder := new(MockPublishRecorder)
	p := NewNATSEventPublisher(publisher, NewEventSubjectMapper(), recorder)
	fixed := time.Date(2023, 10, 15, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	event := events.EntityStateChangedEvent{
		EntityType: models.EntityTypeInvestment,
		EntityID:   7,
		Action:     "approve",
		OldStatus:  "pending",
		NewStatus:  "active",
		Reference:  "TRX-ABC",
	}

	var captured []byte
	publisher.On("Publish", mock.Anything, "workflow.state_changed.investment", mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).([]byte) }).
		Return(nil)
	recorder.On("RecordNATSMessagePublished", "entity_state_changed").Return()

	require.NoError(t, p.Publish(context.Background(), event))

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(captured, &envelope))
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, "entity_state_changed", envelope.EventType)
	assert.Equal(t, SourceService, envelope.SourceService)
	assert.True(t, fixed.Equal(envelope.Timestamp))

	var payload events.EntityStateChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event, payload)

	publisher.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestNATSEventPublisher_Errors(t *testing.T) {
	t.Run("no stream is not an error", func(t *testing.T) {
		publisher := new(MockMessagePublisher)
		publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
			Return(nats.ErrNoStreamResponse)

		p := NewNATSEventPublisher(publisher, NewEventSubjectMapper(), nil)
		assert.NoError(t, p.Publish(context.Background(), events.UserCreatedEvent{UserID: 1}))
	})

	t.Run("other failures surface", func(t *testing.T) {
		publisher := new(MockMessagePublisher)
		publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("connection closed"))

		p := NewNATSEventPublisher(publisher, NewEventSubjectMapper(), nil)
		assert.Error(t, p.Publish(context.Background(), events.UserCreatedEvent{UserID: 1}))

		// Handle swallows the error after logging
		p.Handle(context.Background(), events.UserCreatedEvent{UserID: 1})
		publisher.AssertNumberOfCalls(t, "Publish", 2)
	})
}
