package ws

import (
	"errors"
	"sync"
	"testing"
	"time"

	"termguess/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []any
	closed   bool
	fail     bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any{}, c.messages...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHubRegisterAndOwner(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	id := hub.Register("p1", &fakeConn{})
	owner, ok := hub.Owner(id)
	require.True(t, ok)
	assert.Equal(t, "p1", owner)

	hub.Unregister(id)
	assert.False(t, hub.IsLive(id))
	hub.Unregister(id)
}

func TestHubBroadcastReachesAttachedConnections(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a, b, outsider := &fakeConn{}, &fakeConn{}, &fakeConn{}

	idA := hub.Register("p1", a)
	idB := hub.Register("p2", b)
	hub.Register("p3", outsider)
	require.NoError(t, hub.Attach("ROOM01", idA))
	require.NoError(t, hub.Attach("ROOM01", idB))

	event := domain.Event{Type: domain.EventGameStart, RoomCode: "ROOM01"}
	hub.Broadcast("ROOM01", event)

	assert.Eventually(t, func() bool { return len(a.received()) == 1 && len(b.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, event, a.received()[0])
	assert.Empty(t, outsider.received())
}

func TestHubAttachRequiresLiveConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	err := hub.Attach("ROOM01", "missing")
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
}

func TestHubDetachPlayer(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	id := hub.Register("p1", &fakeConn{})
	require.NoError(t, hub.Attach("ROOM01", id))
	assert.True(t, hub.PlayerAttached("ROOM01", "p1"))
	assert.False(t, hub.PlayerAttached("ROOM01", "p2"))

	hub.DetachPlayer("ROOM01", "p1")
	assert.False(t, hub.PlayerAttached("ROOM01", "p1"))
	assert.True(t, hub.IsLive(id))
}

func TestHubUnregisterClosesConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := &fakeConn{}
	id := hub.Register("p1", conn)
	require.NoError(t, hub.Attach("ROOM01", id))

	hub.Unregister(id)

	assert.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)
	assert.False(t, hub.PlayerAttached("ROOM01", "p1"))
}

func TestHubDropsConnectionOnWriteFailure(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := &fakeConn{fail: true}
	id := hub.Register("p1", conn)

	require.True(t, hub.Send(id, map[string]string{"type": "connected"}))

	assert.Eventually(t, func() bool { return !hub.IsLive(id) }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)
}
