package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchsocial/backend/internal/events"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := New(quietLogger(), opts...)
	t.Cleanup(func() { h.Close() })
	return h
}

func receive(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case msg, ok := <-c.Send():
		require.True(t, ok, "client queue closed")
		var f Frame
		require.NoError(t, json.Unmarshal(msg, &f))
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send():
		t.Fatalf("unexpected frame %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishReachesEverySubscriber(t *testing.T) {
	h := newTestHub(t)
	a, b, outsider := h.NewClient(1), h.NewClient(2), h.NewClient(3)
	ch := events.GroupChannel(7)
	h.Subscribe(a, ch)
	h.Subscribe(b, ch)
	h.Subscribe(outsider, events.GroupChannel(8))

	h.Publish(ch, events.PostDeleted{PostID: 11})

	for _, c := range []*Client{a, b} {
		f := receive(t, c)
		assert.Equal(t, ch, f.Channel)
		assert.Equal(t, events.NamePostDeleted, f.Event)
		assert.JSONEq(t, `{"post_id":11}`, string(f.Payload))
	}
	assertNothing(t, outsider)
}

func TestPublishKeepsChannelOrder(t *testing.T) {
	h := newTestHub(t)
	c := h.NewClient(1)
	ch := events.GroupChannel(1)
	h.Subscribe(c, ch)

	for i := 1; i <= 50; i++ {
		h.Publish(ch, events.PostLiked{PostID: 1, LikesCount: i})
	}
	for i := 1; i <= 50; i++ {
		var ev events.PostLiked
		require.NoError(t, json.Unmarshal(receive(t, c).Payload, &ev))
		require.Equal(t, i, ev.LikesCount)
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	h := newTestHub(t)
	h.Publish("group.404", events.PostDeleted{PostID: 1})
	assert.Zero(t, h.Subscribers("group.404"))
	assert.Zero(t, h.Dropped())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := newTestHub(t)
	c := h.NewClient(1)
	h.Subscribe(c, "group.1")
	h.Subscribe(c, "group.1")
	assert.Equal(t, 1, h.Subscribers("group.1"))

	h.Unsubscribe(c, "group.1")
	assert.Zero(t, h.Subscribers("group.1"))

	h.Publish("group.1", events.PostDeleted{PostID: 1})
	assertNothing(t, c)
}

func TestDisconnectClosesQueueAndDetaches(t *testing.T) {
	h := newTestHub(t)
	c := h.NewClient(1)
	h.Subscribe(c, events.UserChannel(1))
	h.Subscribe(c, "group.2")

	h.Disconnect(c)
	h.Disconnect(c)

	_, ok := <-c.Send()
	assert.False(t, ok)
	assert.Zero(t, h.Subscribers(events.UserChannel(1)))
	assert.Zero(t, h.Subscribers("group.2"))

	// Late subscribe of a gone client is ignored and publishing stays safe.
	h.Subscribe(c, "group.2")
	assert.Zero(t, h.Subscribers("group.2"))
	h.Publish("group.2", events.PostDeleted{PostID: 1})
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	h := newTestHub(t, WithClientQueueSize(2))
	slow, fast := h.NewClient(1), h.NewClient(2)
	h.Subscribe(slow, "group.1")
	h.Subscribe(fast, "group.1")

	for i := 0; i < 5; i++ {
		h.Publish("group.1", events.PostDeleted{PostID: uint(i)})
		receive(t, fast)
	}

	require.Eventually(t, func() bool { return h.Dropped() == 3 }, time.Second, 5*time.Millisecond)
	assert.Len(t, slow.Send(), 2)
}

func TestCloseDrainsAndRejectsLatePublishes(t *testing.T) {
	h := New(quietLogger())
	c := h.NewClient(1)
	h.Subscribe(c, "user.1")
	h.Publish("user.1", events.FriendshipRemoved{ActorID: 2, OtherID: 1})

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	h.Publish("user.1", events.FriendshipRemoved{ActorID: 2, OtherID: 1})

	assert.Equal(t, events.NameFriendshipRemoved, receive(t, c).Event)
	assertNothing(t, c)
}
