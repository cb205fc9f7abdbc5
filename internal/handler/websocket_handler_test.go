package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pilite-service/internal/model"
)

func TestEventBus_FiltersAndUnsubscribes(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	go bus.Start()
	defer bus.Stop()

	all := bus.Subscribe()
	sentOnly := bus.Subscribe(model.EventCommandSent)

	bus.Publish(model.NewEvent(model.EventCommandDropped, "test", nil))
	bus.Publish(model.NewEvent(model.EventCommandSent, "test", nil))

	assert.Equal(t, model.EventCommandDropped, receive(t, all).Type)
	assert.Equal(t, model.EventCommandSent, receive(t, all).Type)
	assert.Equal(t, model.EventCommandSent, receive(t, sentOnly).Type)

	bus.Unsubscribe(sentOnly)
	_, ok := <-sentOnly
	assert.False(t, ok)
}

func TestEventBus_StopClosesSubscribers(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	go bus.Start()

	ch := bus.Subscribe()
	bus.Stop()
	bus.Stop()

	_, ok := <-ch
	assert.False(t, ok)
}

func receive(t *testing.T, ch <-chan model.Event) model.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return model.Event{}
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) WebSocketMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketHandler_StreamsEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bus := NewEventBus(zap.NewNop())
	go bus.Start()
	defer bus.Stop()

	wsHandler := NewWebSocketHandler(bus, nil, zap.NewNop())
	router := gin.New()
	router.GET("/ws/events", wsHandler.HandleEventConnection)
	router.GET("/ws/stats", wsHandler.HandleStats)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "welcome", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: "ping", RequestID: "r1"}))
	pong := readMessage(t, conn)
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, "r1", pong.RequestID)

	require.NoError(t, conn.WriteJSON(WebSocketMessage{
		Type: "subscribe",
		Data: map[string]interface{}{"topic": string(model.EventCommandSent)},
	}))
	assert.Equal(t, "subscribed", readMessage(t, conn).Type)

	require.Eventually(t, func() bool {
		return wsHandler.GetConnectionStats().TotalConnections == 1
	}, time.Second, 5*time.Millisecond)

	res, err := http.Get(server.URL + "/ws/stats")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var stats struct {
		Success bool `json:"success"`
		Data    struct {
			TotalConnections int `json:"total_connections"`
			Clients          []struct {
				ID string `json:"id"`
			} `json:"clients"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stats))
	assert.True(t, stats.Success)
	assert.Equal(t, 1, stats.Data.TotalConnections)
	require.Len(t, stats.Data.Clients, 1)
	assert.NotEmpty(t, stats.Data.Clients[0].ID)

	bus.Publish(model.NewEvent(model.EventCommandDropped, "pi-lite", nil))
	bus.Publish(model.NewEvent(model.EventCommandSent, "pi-lite", map[string]interface{}{"command": "$$$ALL,OFF\r"}))

	msg := readMessage(t, conn)
	require.Equal(t, "display_event", msg.Type)

	raw, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var event model.Event
	require.NoError(t, json.Unmarshal(raw, &event))
	assert.Equal(t, model.EventCommandSent, event.Type)
	assert.Equal(t, "$$$ALL,OFF\r", event.Data["command"])
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://panel.local"})

	req := httptest.NewRequest("GET", "/ws/events", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://panel.local")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))
}
