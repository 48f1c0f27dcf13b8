package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_FanOutInSubscriptionOrder(t *testing.T) {
	h := NewHub()

	var got []string
	h.Subscribe(func(c Change) { got = append(got, "a:"+c.ID) })
	h.Subscribe(func(c Change) { got = append(got, "b:"+c.ID) })

	h.Publish(Change{Topic: TopicPatients, Op: OpCreated, ID: "p1"})

	assert.Equal(t, []string{"a:p1", "b:p1"}, got)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()

	calls := 0
	unsub := h.Subscribe(func(Change) { calls++ })
	require.Equal(t, 1, h.Len())

	h.Publish(Change{Topic: TopicAppointments, Op: OpUpdated})
	unsub()
	unsub()
	h.Publish(Change{Topic: TopicAppointments, Op: OpUpdated})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, h.Len())
}

func TestHub_UnsubscribeInsideCallback(t *testing.T) {
	h := NewHub()

	calls := 0
	var unsub func()
	unsub = h.Subscribe(func(Change) {
		calls++
		unsub()
	})

	h.Publish(Change{Topic: TopicSession, Op: OpLogin})
	h.Publish(Change{Topic: TopicSession, Op: OpLogout})

	assert.Equal(t, 1, calls)
}

func TestHub_PublishStampsTime(t *testing.T) {
	h := NewHub()

	var seen Change
	h.Subscribe(func(c Change) { seen = c })
	h.Publish(Change{Topic: TopicPatients, Op: OpDeleted, ID: "p2"})

	assert.False(t, seen.At.IsZero())
}
