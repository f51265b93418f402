package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/relay"
)

const testIndexHTML = "<!DOCTYPE html><title>relay test</title>"

var testAssets = fstest.MapFS{
	"index.html": {Data: []byte(testIndexHTML)},
	"js/app.js":  {Data: []byte("console.log('relay');")},
}

// startTestServer runs a relay behind httptest and shuts everything down
// when the test ends.
func startTestServer(t *testing.T, cfg *Config) (*Server, *httptest.Server) {
	t.Helper()

	srv := New(cfg, testAssets)
	srv.StartHub()
	ts := httptest.NewServer(srv.SetupRoutes())

	t.Cleanup(func() {
		_ = srv.Hub().Shutdown(2 * time.Second)
		ts.Close()
	})
	return srv, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// dial opens a WebSocket with an Origin header matching the test server.
func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, err := dialWithOrigin(ts, ts.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func dialWithOrigin(ts *httptest.Server, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(wsURL(ts), headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// connectClients dials n clients and waits until the hub has registered them all.
func connectClients(t *testing.T, srv *Server, ts *httptest.Server, n int) []*websocket.Conn {
	t.Helper()
	base := srv.Hub().ClientCount()
	conns := make([]*websocket.Conn, n)
	for i := range conns {
		conns[i] = dial(t, ts)
	}
	waitForClients(t, srv.Hub(), base+n)
	return conns
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.ClientCount() == n
	}, 2*time.Second, 5*time.Millisecond, "expected %d registered clients", n)
}

func sendEvent(t *testing.T, conn *websocket.Conn, kind relay.Kind, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := relay.Encode(relay.Event{Kind: kind, Payload: payload})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)
	return string(data)
}

func readEvent(t *testing.T, conn *websocket.Conn) relay.Event {
	t.Helper()
	ev, err := relay.Decode([]byte(readFrame(t, conn)))
	require.NoError(t, err)
	return ev
}

// expectNoMessage fails if conn receives a frame within wait. It leaves the
// connection unusable for further reads, so call it last on a connection.
func expectNoMessage(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame %q", data)
}

func chatFrame(text string) string {
	payload, _ := json.Marshal(text)
	frame, _ := relay.Encode(relay.Event{Kind: relay.KindChatMessage, Payload: payload})
	return string(frame)
}
