package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[SettingChanged](b, 1)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), SettingChanged{Key: "simple-weather.season"}))

	select {
	case got := <-ch:
		require.Equal(t, "simple-weather.season", got.Key)
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_InterfaceSubscriptionReceivesConcreteEvents(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[Event](b, 2)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), CalendarReady{}))
	require.NoError(t, b.Publish(context.Background(), DependencyReady{}))

	require.Equal(t, NameCalendarReady, (<-ch).EventName())
	require.Equal(t, NameDependencyReady, (<-ch).EventName())
}

func TestBus_PublishBackpressure(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubscribe := Subscribe[CalendarReady](b, 0) // unbuffered, nobody reading
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, CalendarReady{})
	require.Error(t, err)

	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, ferrors.CategoryRuntime, classified.Category())
}

func TestBus_UnsubscribeAndClose(t *testing.T) {
	b := NewBus()

	_, unsubscribe := Subscribe[DateChanged](b, 1)
	require.Equal(t, 1, SubscriberCount[DateChanged](b))
	unsubscribe()
	unsubscribe()
	require.Equal(t, 0, SubscriberCount[DateChanged](b))

	ch, _ := Subscribe[DateChanged](b, 1)
	b.Close()

	_, ok := <-ch
	require.False(t, ok)
	require.Error(t, b.Publish(context.Background(), DateChanged{}))

	late, _ := Subscribe[DateChanged](b, 1)
	_, ok = <-late
	require.False(t, ok, "subscribing to a closed bus yields a closed channel")
}
