package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()
	b := New()
	a, unsubA := b.Subscribe(4)
	c, unsubC := b.Subscribe(4)
	defer unsubC()

	b.Publish(Event{Type: YearWritten, Data: 2020})

	ev := <-a
	assert.Equal(t, YearWritten, ev.Type)
	assert.False(t, ev.Time.IsZero())
	assert.Equal(t, 2020, (<-c).Data)

	unsubA()
	unsubA()
	_, ok := <-a
	assert.False(t, ok, "channel closed after unsubscribe")

	// Publishing after an unsubscribe must not panic.
	b.Publish(Event{Type: TaskStarted})
	require.Len(t, c, 1)
}

func TestPublishDropsWhenFull(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: TaskStarted})
	b.Publish(Event{Type: TaskFinished})

	require.Len(t, ch, 1)
	assert.Equal(t, TaskStarted, (<-ch).Type)
}
