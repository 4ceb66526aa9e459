package websocket

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const receiveTimeout = 2 * time.Second

func newTestRouter(t *testing.T) (*Router, string) {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	router := NewRouter(logger)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		_ = router.Close()
		server.Close()
	})

	return router, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialTestConn(t *testing.T, url string) *Conn {
	t.Helper()

	conn, err := Dial(context.Background(), url)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

func TestRouter_Receive(t *testing.T) {
	t.Run("Frames from every connection share one stream", func(t *testing.T) {
		// Given: two clients connected to the router
		router, url := newTestRouter(t)
		alice := dialTestConn(t, url)
		bob := dialTestConn(t, url)

		// When: both send a frame
		require.NoError(t, alice.Send([]byte("from alice")))
		first, err := router.Receive(receiveTimeout)
		require.NoError(t, err)

		require.NoError(t, bob.Send([]byte("from bob")))
		second, err := router.Receive(receiveTimeout)
		require.NoError(t, err)

		// Then: each frame is tagged with a distinct identity
		assert.Equal(t, "from alice", string(first.Payload))
		assert.Equal(t, "from bob", string(second.Payload))
		assert.NotEmpty(t, first.Identity)
		assert.NotEqual(t, first.Identity, second.Identity)
	})

	t.Run("Times out when nothing arrives", func(t *testing.T) {
		router, _ := newTestRouter(t)

		_, err := router.Receive(10 * time.Millisecond)

		require.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("Reports a closed router", func(t *testing.T) {
		router, _ := newTestRouter(t)
		require.NoError(t, router.Close())

		_, err := router.Receive(receiveTimeout)

		require.ErrorIs(t, err, ErrClosed)
	})
}

func TestRouter_Send(t *testing.T) {
	t.Run("Replies reach the connection with the identity", func(t *testing.T) {
		// Given: a client whose identity is known from its first frame
		router, url := newTestRouter(t)
		conn := dialTestConn(t, url)

		require.NoError(t, conn.Send([]byte("hello")))
		envelope, err := router.Receive(receiveTimeout)
		require.NoError(t, err)

		// When: the router replies to that identity
		require.NoError(t, router.Send(envelope.Identity, []byte("welcome")))

		// Then: the client receives it
		payload, err := conn.Receive(receiveTimeout)
		require.NoError(t, err)
		assert.Equal(t, "welcome", string(payload))
	})

	t.Run("Unknown identity", func(t *testing.T) {
		router, _ := newTestRouter(t)

		err := router.Send("nobody", []byte("hello"))

		require.ErrorIs(t, err, ErrUnknownPeer)
	})
}

func TestConn_Receive(t *testing.T) {
	t.Run("Closed by the server", func(t *testing.T) {
		// Given: a connected client
		router, url := newTestRouter(t)
		conn := dialTestConn(t, url)

		require.NoError(t, conn.Send([]byte("hello")))
		_, err := router.Receive(receiveTimeout)
		require.NoError(t, err)

		// When: the router shuts down
		require.NoError(t, router.Close())

		// Then: the client sees the connection closed
		_, err = conn.Receive(receiveTimeout)
		require.ErrorIs(t, err, ErrClosed)
	})

	t.Run("Times out when nothing arrives", func(t *testing.T) {
		_, url := newTestRouter(t)
		conn := dialTestConn(t, url)

		_, err := conn.Receive(10 * time.Millisecond)

		require.ErrorIs(t, err, ErrTimeout)
	})
}
