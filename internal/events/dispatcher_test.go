package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherInvokesSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var seen []string
	d.Subscribe(EventSaleRecorded, func(_ context.Context, e Event) error {
		seen = append(seen, e.AgencyID)
		return nil
	})
	d.Subscribe(EventSaleRecorded, func(_ context.Context, e Event) error {
		seen = append(seen, e.AgencyID+"-second")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventSaleRecorded, AgencyID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a1-second"}, seen)
}

func TestDispatcherHandlerErrorDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var called bool
	d.Subscribe(EventCallScored, func(_ context.Context, _ Event) error {
		return errors.New("boom")
	})
	d.Subscribe(EventCallScored, func(_ context.Context, _ Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventCallScored})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestDispatcherIgnoresUnsubscribedTypes(t *testing.T) {
	d := NewInMemoryDispatcher()
	err := d.Publish(context.Background(), Event{Type: EventLeadSubmitted})
	assert.NoError(t, err)
}
