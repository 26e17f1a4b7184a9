package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, userID)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	waitForConnections(t, hub, userID, 1)
	return conn
}

func waitForConnections(t *testing.T, hub *Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ConnectionCount(userID) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("user %s never reached %d connections", userID, want)
}

func TestHubDeliversEventToUser(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "tenant-1")

	hub.Notify("tenant-1", map[string]string{"type": "application_status", "status": "Approved"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event map[string]string
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "Approved", event["status"])
}

func TestHubDoesNotCrossRooms(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "tenant-1")

	hub.Notify("tenant-2", map[string]string{"status": "Rejected"})
	hub.Notify("tenant-1", map[string]string{"status": "Approved"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event map[string]string
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "Approved", event["status"])
}

func TestHubNotifyWithoutListeners(t *testing.T) {
	hub := NewHub()
	// Must not block or panic when nobody is connected.
	hub.Notify("nobody", map[string]string{"status": "Approved"})
	assert.Equal(t, 0, hub.ConnectionCount("nobody"))
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "tenant-1")

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ConnectionCount("tenant-1") == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("connection was never unregistered after close")
}
