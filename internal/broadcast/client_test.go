package broadcast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/models"
)

func TestPingIsAnsweredByWritePump(t *testing.T) {
	hub := setupHub(t)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, conn, "u1").Serve()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeConnected, msg.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypePing}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypePong, msg.Type)
}

func TestPingAfterDropDoesNotPanic(t *testing.T) {
	hub := setupHub(t)
	c := createTestClient(hub, "u1", 1)
	hub.Register <- c
	require.Eventually(t, func() bool { return hub.UserClientCount("u1") == 1 }, time.Second, 5*time.Millisecond)

	cart := &models.Cart{OwnerID: "u1", Lines: []models.CartLine{}}
	hub.SendToUser("u1", CartUpdated("u1", cart))
	hub.SendToUser("u1", CartUpdated("u1", cart))
	require.Eventually(t, func() bool { return hub.UserClientCount("u1") == 0 }, time.Second, 5*time.Millisecond)

	// send est fermé par le hub ; un ping tardif ne doit pas y écrire
	<-c.send
	_, ok := <-c.send
	require.False(t, ok)

	assert.NotPanics(t, func() {
		c.queuePong()
		c.queuePong()
	})
	assert.Len(t, c.pong, 1)
}

func TestClientCallsReturnOnceHubStopped(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, hub.RunWithContext(ctx), context.Canceled)

	select {
	case <-hub.Done():
	default:
		t.Fatal("hub not marked done")
	}

	c := createTestClient(hub, "u1", 1)
	returned := make(chan struct{})
	go func() {
		assert.False(t, hub.register(c))
		hub.unregister(c)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked after hub stop")
	}
}
