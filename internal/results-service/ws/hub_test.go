package ws

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
	"go.uber.org/zap"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func readMap(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestHub_PingPong(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true }, nil)
	conn := dial(t, hub)

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))
	assert.Equal(t, "pong", readMap(t, conn)["type"])
}

func TestHub_SubscribeReceivesOnlyItsTopic(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true }, nil)
	conn := dial(t, hub)

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", Topic: TopicContests}))
	ack := readMap(t, conn)
	require.Equal(t, "subscribed", ack["type"])
	require.Equal(t, 1, hub.Subscribers(TopicContests))

	hub.Broadcast(Update{Topic: TopicWindow, Payload: "ignored"})
	handlePayload(hub, []byte(`{"contestNumber": 2870, "drawnNumbers": ["01","02","03","04","05","06"]}`), zap.NewNop())

	got := readMap(t, conn)
	assert.Equal(t, TopicContests, got["topic"])
	payload := got["payload"].(map[string]any)
	assert.Equal(t, float64(2870), payload["contestNumber"])
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true }, nil)
	conn := dial(t, hub)

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", Topic: TopicWindow}))
	readMap(t, conn)
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "unsubscribe", Topic: TopicWindow}))
	assert.Equal(t, "unsubscribed", readMap(t, conn)["type"])
	assert.Equal(t, 0, hub.Subscribers(TopicWindow))

	hub.PushWindow(context.Background(), []dto.ContestResult{{ContestNumber: 1}})
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))
	assert.Equal(t, "pong", readMap(t, conn)["type"])
}

func TestHandlePayload_IgnoresGarbage(t *testing.T) {
	hub := NewHub(nil, nil)
	assert.NotPanics(t, func() {
		handlePayload(hub, []byte(`not-json`), zap.NewNop())
		handlePayload(hub, []byte(`{"contestNumber": 0}`), zap.NewNop())
	})
}
