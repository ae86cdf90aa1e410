package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got []any
	_, err := b.Subscribe("test.event", func(e Event) error {
		got = append(got, e.Data())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent("test.event", "tester", 123)))
	require.NoError(t, b.Publish(NewEvent("other.event", "tester", 456)))

	assert.Equal(t, []any{123}, got, "delivery is synchronous and filtered by type")
}

func TestDeliveryOrderAndWildcard(t *testing.T) {
	b := New()
	var order []string
	for _, name := range []string{"first", "second"} {
		_, err := b.Subscribe("x", func(Event) error {
			order = append(order, name)
			return nil
		})
		require.NoError(t, err)
	}
	_, err := b.Subscribe(Wildcard, func(e Event) error {
		order = append(order, "all:"+e.Type())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent("x", "src", nil)))
	require.NoError(t, b.Publish(NewEvent("y", "src", nil)))

	assert.Equal(t, []string{"first", "second", "all:x", "all:y"}, order)
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	b := New()
	errA, errB := errors.New("a"), errors.New("b")
	_, _ = b.Subscribe("x", func(Event) error { return errA })
	_, _ = b.Subscribe("x", func(Event) error { return errB })

	err := b.Publish(NewEvent("x", "src", nil))
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	err = b.PublishBatch(NewEvent("x", "src", nil), NewEvent("none", "src", nil))
	assert.ErrorIs(t, err, errB)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	calls := 0
	sub, err := b.Subscribe("x", func(Event) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sub.IsActive())
	assert.NotEmpty(t, sub.ID())

	require.NoError(t, b.Publish(NewEvent("x", "src", nil)))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	require.NoError(t, b.Unsubscribe(nil))
	require.NoError(t, b.Publish(NewEvent("x", "src", nil)))

	assert.Equal(t, 1, calls)
	assert.False(t, sub.IsActive())
}

func TestHandlersMayPublish(t *testing.T) {
	b := New()
	var nested bool
	_, _ = b.Subscribe("outer", func(Event) error {
		return b.Publish(NewEvent("inner", "src", nil))
	})
	_, _ = b.Subscribe("inner", func(Event) error {
		nested = true
		return nil
	})

	require.NoError(t, b.Publish(NewEvent("outer", "src", nil)))
	assert.True(t, nested)
}

func TestSubscribeValidates(t *testing.T) {
	b := New()
	_, err := b.Subscribe("", func(Event) error { return nil })
	assert.Error(t, err)
	_, err = b.Subscribe("x", nil)
	assert.Error(t, err)
}
