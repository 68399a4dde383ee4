package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devsantiago69/Citaly-sub002/internal/auth"
	"github.com/devsantiago69/Citaly-sub002/internal/presence"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoom(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"lobby"`, "lobby"},
		{`{"room":"lobby"}`, "lobby"},
		{`{"room":""}`, ""},
		{`123`, ""},
		{`null`, ""},
	}

	for _, test := range tests {
		got := decodeRoom(json.RawMessage(test.input))
		if got != test.expected {
			t.Errorf("decodeRoom(%s) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

// startWSServer mounts the websocket handler on a test server and returns
// the registry behind it
func startWSServer(t *testing.T) (*httptest.Server, *presence.Registry, *auth.Service) {
	t.Helper()
	registry := presence.NewRegistry(zerolog.Nop())
	authService := auth.NewService("ws-test-secret")
	h := NewWebSocketHandler(registry, authService, zerolog.Nop())

	e := echo.New()
	e.GET("/ws", h.HandleWebSocket)
	server := httptest.NewServer(e)
	registry.Ready()
	t.Cleanup(server.Close)
	return server, registry, authService
}

func dialWS(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads socket messages until one of the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) presence.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg presence.Message
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %q", msgType)
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestWebSocketAuthenticateFlow(t *testing.T) {
	server, registry, _ := startWSServer(t)
	conn := dialWS(t, server, "")

	welcome := readUntil(t, conn, "connection")
	assert.Equal(t, "connected", welcome.Data["status"])
	assert.Empty(t, registry.ListOnline())

	payload := map[string]any{
		"type": "authenticate",
		"data": map[string]any{"userId": "u1", "companyId": "co1", "name": "Ana", "role": "staff"},
	}
	require.NoError(t, conn.WriteJSON(payload))

	roster := readUntil(t, conn, "users_online")
	users, ok := roster.Data["users"].([]any)
	require.True(t, ok)
	require.Len(t, users, 1)
	user := users[0].(map[string]any)
	assert.Equal(t, "u1", user["userId"])
	assert.Equal(t, "Ana", user["name"])
}

func TestWebSocketAuthenticateRejectsMissingUserID(t *testing.T) {
	server, registry, _ := startWSServer(t)
	conn := dialWS(t, server, "")
	readUntil(t, conn, "connection")

	payload := map[string]any{
		"type": "authenticate",
		"data": map[string]any{"name": "Nobody"},
	}
	require.NoError(t, conn.WriteJSON(payload))

	errMsg := readUntil(t, conn, "error")
	assert.Contains(t, errMsg.Data["message"], "invalid identity")
	assert.Empty(t, registry.ListOnline())
}

func TestWebSocketTokenIdentify(t *testing.T) {
	server, registry, authService := startWSServer(t)

	token, err := authService.GenerateToken("u7", "co3", "Bea", "admin", time.Minute)
	require.NoError(t, err)

	conn := dialWS(t, server, "?token="+token)
	readUntil(t, conn, "users_online")

	online := registry.ListOnline()
	require.Len(t, online, 1)
	assert.Equal(t, "u7", online[0].UserID)
}

func TestWebSocketPingPong(t *testing.T) {
	server, _, _ := startWSServer(t)
	conn := dialWS(t, server, "")
	readUntil(t, conn, "connection")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	pong := readUntil(t, conn, "pong")
	assert.Equal(t, "ok", pong.Data["status"])
}

func TestWebSocketDisconnectDropsPresence(t *testing.T) {
	server, registry, _ := startWSServer(t)
	conn := dialWS(t, server, "")
	readUntil(t, conn, "connection")

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "authenticate",
		"data": map[string]any{"userId": "u1"},
	}))
	readUntil(t, conn, "users_online")
	require.Len(t, registry.ListOnline(), 1)

	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(registry.ListOnline()) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("connection still listed online after disconnect")
}
