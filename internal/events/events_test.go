package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	payload := ResponseRecordedPayload{
		SessionID:  uuid.New(),
		UserID:     uuid.New(),
		ItemID:     uuid.New(),
		DomainCode: "PSY",
		IsCorrect:  true,
		AnsweredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	event, err := NewEvent(TypeResponseRecorded, payload)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeResponseRecorded, event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded ResponseRecordedPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)

	_, err = NewEvent("bad", make(chan int))
	assert.Error(t, err)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *Event
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestHandlerFuncFiltersByType(t *testing.T) {
	t.Parallel()

	calls := 0
	handler := HandlerFunc{
		Type: TypeSessionCompleted,
		Fn: func(ctx context.Context, event *Event) error {
			calls++
			return errors.New("boom")
		},
	}

	other, err := NewEvent(TypeResponseRecorded, ResponseRecordedPayload{})
	require.NoError(t, err)
	assert.NoError(t, handler.HandleEvent(context.Background(), other))
	assert.Zero(t, calls)

	completed, err := NewEvent(TypeSessionCompleted, SessionCompletedPayload{Status: "completed"})
	require.NoError(t, err)
	assert.EqualError(t, handler.HandleEvent(context.Background(), completed), "boom")
	assert.Equal(t, 1, calls)
}

func TestNoopEmitter(t *testing.T) {
	t.Parallel()

	event, err := NewEvent(TypeSessionCompleted, SessionCompletedPayload{})
	require.NoError(t, err)
	assert.NoError(t, NoopEmitter{}.EmitEvent(context.Background(), event))
}
