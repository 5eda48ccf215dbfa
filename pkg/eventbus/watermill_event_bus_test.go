package eventbus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/approvalflow/pkg/channels/gochannel"
	"github.com/lumenlms/approvalflow/pkg/events"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		if err := bus.Close(); err != nil {
			t.Logf("Failed to close event bus: %v", err)
		}
	})

	return bus
}

func TestWatermillEventBus_PublishAndSubscribe(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan any, 1)

	err := bus.Handle(events.ApplicationCreatedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	actor := int64(9)
	event := events.ApplicationCreated{
		BaseEvent:         events.NewBaseEvent(events.ApplicationCreatedEvent, 3),
		WorkflowVersionID: 2,
		StageID:           7,
	}
	event.ActorUserID = &actor

	require.NoError(t, bus.Publish(ctx, "3", event))

	select {
	case raw := <-received:
		created, ok := raw.(*events.ApplicationCreated)
		require.True(t, ok)
		assert.Equal(t, int64(3), created.ApplicationID)
		assert.Equal(t, int64(2), created.WorkflowVersionID)
		assert.Equal(t, int64(7), created.StageID)
		require.NotNil(t, created.ActorUserID)
		assert.Equal(t, int64(9), *created.ActorUserID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestWatermillEventBus_UnhandledEventTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.ApplicationWithdrawn{
		BaseEvent: events.NewBaseEvent(events.ApplicationWithdrawnEvent, 3),
		StageID:   7,
	}

	// No handler registered; publish must still complete.
	require.NoError(t, bus.Publish(ctx, "3", event))
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
