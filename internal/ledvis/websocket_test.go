package ledvis

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/ledfx/led"
)

func TestWebSocketStreamsFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := NewWebSocket(WebSocketConfig{}, testLogger)
	done := runOutput(ctx, ws)

	srv := httptest.NewServer(ws.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/frames"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ws.hub.len() == 1 },
		time.Second, 10*time.Millisecond, "client not registered")

	ws.PutFrame(led.LEDs{led.Red, {1, 2, 3}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)
	assert.Equal(t, []byte{255, 0, 0, 1, 2, 3}, msg)

	cancel()
	waitErr(t, done)

	// The hub closes every client on shutdown.
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocketClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := NewWebSocket(WebSocketConfig{}, testLogger)
	runOutput(ctx, ws)

	srv := httptest.NewServer(ws.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/frames"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return ws.hub.len() == 1 },
		time.Second, 10*time.Millisecond, "client not registered")

	conn.Close()

	require.Eventually(t, func() bool { return ws.hub.len() == 0 },
		time.Second, 10*time.Millisecond, "client not unregistered")
}

func TestHubDropsSlowClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHub(testLogger, 1)
	go h.run(ctx)

	fast := &client{hub: h, send: make(chan []byte, 4), remoteAddr: "fast", logger: testLogger}
	slow := &client{hub: h, send: make(chan []byte, 1), remoteAddr: "slow", logger: testLogger}

	h.register <- fast
	h.register <- slow
	require.Eventually(t, func() bool { return h.len() == 2 },
		time.Second, 10*time.Millisecond, "clients not registered")

	h.broadcast <- []byte{1}
	h.broadcast <- []byte{2}

	require.Eventually(t, func() bool { return h.len() == 1 },
		time.Second, 10*time.Millisecond, "slow client not removed")

	assert.Equal(t, []byte{1}, <-fast.send)
	assert.Equal(t, []byte{2}, <-fast.send)

	// The slow client got the first frame before its queue was closed.
	assert.Equal(t, []byte{1}, <-slow.send)
	_, ok := <-slow.send
	assert.False(t, ok, "slow client queue should be closed")
}

func TestBaseOutputKeepsLatestFrame(t *testing.T) {
	var o baseOutput
	o.init()

	assert.False(t, o.AcquireFrame(func(led.LEDs) {}), "nothing was put yet")

	frame := led.LEDs{led.Red}
	o.PutFrame(frame)
	frame[0] = led.Blue
	o.PutFrame(led.LEDs{led.Green})

	select {
	case <-o.Ready():
	default:
		t.Fatal("ready was not signaled")
	}

	var got led.LEDs
	assert.True(t, o.AcquireFrame(func(f led.LEDs) { got = f.Clone() }))
	assert.Equal(t, led.LEDs{led.Green}, got)
	assert.Equal(t, uint64(1), o.Dropped())

	assert.False(t, o.AcquireFrame(func(led.LEDs) {}), "frame was already acquired")
}

func TestHubLeaveAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := newHub(testLogger, 1)
	stopped := make(chan struct{})
	go func() {
		h.run(ctx)
		close(stopped)
	}()

	cancel()
	<-stopped

	// More clients than the unregister queue holds.
	left := make(chan struct{})
	go func() {
		for i := 0; i < 4*cap(h.unregister); i++ {
			h.leave(&client{hub: h, send: make(chan []byte, 1), logger: testLogger})
		}
		close(left)
	}()

	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after the hub stopped")
	}
}
