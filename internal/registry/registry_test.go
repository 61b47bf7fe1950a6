package registry

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records deliveries and can be told to fail.
type fakeConn struct {
	mu       sync.Mutex
	messages []any
	failWith error
	closed   bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
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

func (c *fakeConn) delivered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func newTestRegistry() *Registry {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestRegisterAndLen(t *testing.T) {
	r := newTestRegistry()
	assert.Equal(t, 0, r.Len())

	r.Register("a", &fakeConn{})
	r.Register("b", &fakeConn{})
	assert.Equal(t, 2, r.Len())

	r.Unregister("a")
	assert.Equal(t, 1, r.Len())

	// Unregistering an absent id is a no-op.
	r.Unregister("a")
	assert.Equal(t, 1, r.Len())
}

func TestReRegisterReplacesHandle(t *testing.T) {
	r := newTestRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	r.Register("a", first)
	r.Register("a", second)
	assert.Equal(t, 1, r.Len())

	r.SendTo("a", "hello")
	assert.Equal(t, 0, first.delivered())
	assert.Equal(t, 1, second.delivered())
}

func TestSendToUnknownIsSilent(t *testing.T) {
	r := newTestRegistry()
	r.SendTo("ghost", "hello")
	assert.Equal(t, 0, r.Len())
}

func TestSendToFailureDropsConnection(t *testing.T) {
	r := newTestRegistry()
	conn := &fakeConn{failWith: errors.New("broken pipe")}
	r.Register("a", conn)

	r.SendTo("a", "hello")
	assert.Equal(t, 0, r.Len())
	assert.True(t, conn.closed)
}

func TestBroadcastIsolatesFailures(t *testing.T) {
	r := newTestRegistry()
	c1 := &fakeConn{}
	c2 := &fakeConn{failWith: errors.New("connection reset")}
	c3 := &fakeConn{}
	r.Register("c1", c1)
	r.Register("c2", c2)
	r.Register("c3", c3)

	r.Broadcast("update")

	// The failing connection is removed; the other two still got the message.
	assert.Equal(t, 1, c1.delivered())
	assert.Equal(t, 1, c3.delivered())
	assert.True(t, c2.closed)
	assert.Equal(t, 2, r.Len())

	// The survivors keep receiving afterwards.
	r.Broadcast("update-2")
	assert.Equal(t, 2, c1.delivered())
	assert.Equal(t, 2, c3.delivered())
}

func TestDropKeepsNewerHandle(t *testing.T) {
	r := newTestRegistry()
	stale := &fakeConn{}
	fresh := &fakeConn{}
	r.Register("a", stale)

	// A reconnect replaces the handle before the stale one is dropped.
	r.Register("a", fresh)
	r.drop("a", stale)

	require.Equal(t, 1, r.Len())
	r.SendTo("a", "hello")
	assert.Equal(t, 1, fresh.delivered())
}

func TestBroadcastEntityUpdateEnvelope(t *testing.T) {
	r := newTestRegistry()
	conn := &fakeConn{}
	r.Register("a", conn)

	r.BroadcastEntityUpdate("e-1", map[string]any{"name": "Vessel"})

	require.Equal(t, 1, conn.delivered())
}

func TestConcurrentRegisterBroadcast(t *testing.T) {
	r := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		id := string(rune('a' + i))
		go func() {
			defer wg.Done()
			r.Register(id, &fakeConn{})
		}()
		go func() {
			defer wg.Done()
			r.Broadcast("update")
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, r.Len())
}
