package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/ember-ui/internal/control"
)

// wsTestTimeout bounds how long a test waits for a WebSocket message.
const wsTestTimeout = 2 * time.Second

// dialWS connects a WebSocket client to the test server.
func dialWS(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readText reads one text message with a deadline.
func readText(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(wsTestTimeout)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	return data
}

func TestWebSocket_SubscribeReceivesValueChanges(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{ID: 1, Type: control.TypeSlider, Label: "Dimmer"})

	ts := httptest.NewServer(router)
	defer ts.Close()

	conn := dialWS(t, ts, "")

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{controlChannel}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("failed to send subscribe: %v", err)
	}

	var resp WSMessage
	if err := json.Unmarshal(readText(t, conn), &resp); err != nil {
		t.Fatalf("failed to decode subscribe response: %v", err)
	}
	if resp.Type != WSTypeResponse || resp.ID != "sub-1" {
		t.Fatalf("subscribe response = %+v, want response with matching ID", resp)
	}

	// A REST value change must reach the subscribed client as an event.
	rec := doJSON(t, router, http.MethodPut, "/api/v1/controls/1/value",
		setValueRequest{Value: 80}, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("value set status = %d: %s", rec.Code, rec.Body.String())
	}

	var event WSMessage
	if err := json.Unmarshal(readText(t, conn), &event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if event.Type != WSTypeEvent || event.EventType != controlChannel {
		t.Fatalf("event = %+v, want %s event", event, controlChannel)
	}

	payload, ok := event.Payload.(map[string]any)
	if !ok {
		t.Fatalf("event payload type = %T, want object", event.Payload)
	}
	if payload["id"] != float64(1) || payload["value"] != float64(80) {
		t.Errorf("payload = %v, want id=1 value=80", payload)
	}
}

func TestWebSocket_UnsubscribedClientGetsNoEvents(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{ID: 1, Type: control.TypeSlider, Label: "Dimmer"})

	ts := httptest.NewServer(router)
	defer ts.Close()

	conn := dialWS(t, ts, "")

	doJSON(t, router, http.MethodPut, "/api/v1/controls/1/value",
		setValueRequest{Value: 30}, "", nil)

	// Not subscribed and not legacy: nothing should arrive.
	if err := conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Errorf("expected read timeout, got message %q", data)
	}
}

func TestWebSocket_LegacyFrameAppliesValue(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{ID: 1, Type: control.TypeSlider, Label: "Dimmer"})

	ts := httptest.NewServer(router)
	defer ts.Close()

	conn := dialWS(t, ts, "")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("slvalue:60:1")); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}

	waitForValue(t, srv, 1, 60)
}

func TestWebSocket_LegacyFrameSyncsPeerPanels(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{ID: 1, Type: control.TypeSlider, Label: "Dimmer"})
	seedControl(t, srv, &control.Control{ID: 2, Type: control.TypeSwitch, Label: "Lamp"})

	ts := httptest.NewServer(router)
	defer ts.Close()

	connA := dialWS(t, ts, "")
	connB := dialWS(t, ts, "")

	// B speaks the legacy protocol first so it is flagged for frame fan-out.
	if err := connB.WriteMessage(websocket.TextMessage, []byte("svalue:1:2")); err != nil {
		t.Fatalf("failed to send frame from B: %v", err)
	}
	waitForValue(t, srv, 2, 1)

	// A's slider drag must reach B as a frame, with A excluded from the echo.
	if err := connA.WriteMessage(websocket.TextMessage, []byte("slvalue:60:1")); err != nil {
		t.Fatalf("failed to send frame from A: %v", err)
	}

	if got := string(readText(t, connB)); got != "slvalue:60:1" {
		t.Errorf("peer frame = %q, want slvalue:60:1", got)
	}
}

func TestWebSocket_SwitchFrameBroadcast(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{ID: 3, Type: control.TypeSwitch, Label: "Lamp"})

	ts := httptest.NewServer(router)
	defer ts.Close()

	conn := dialWS(t, ts, "")

	// Mark the client legacy with a no-op-free frame on another control,
	// then flip the switch via REST and expect the frame back.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("svalue:1:3")); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}
	waitForValue(t, srv, 3, 1)

	rec := doJSON(t, router, http.MethodPut, "/api/v1/controls/3/value",
		setValueRequest{Value: 0}, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("value set status = %d", rec.Code)
	}

	if got := string(readText(t, conn)); got != "svalue:0:3" {
		t.Errorf("frame = %q, want svalue:0:3", got)
	}
}

func TestWebSocket_PingPong(t *testing.T) {
	_, router := newTestServer(t, false)

	ts := httptest.NewServer(router)
	defer ts.Close()

	conn := dialWS(t, ts, "")

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("failed to send ping: %v", err)
	}

	var resp WSMessage
	if err := json.Unmarshal(readText(t, conn), &resp); err != nil {
		t.Fatalf("failed to decode pong: %v", err)
	}
	if resp.Type != WSTypePong || resp.ID != "p1" {
		t.Errorf("response = %+v, want pong with matching ID", resp)
	}
}

func TestWebSocket_UnknownTypeReturnsError(t *testing.T) {
	_, router := newTestServer(t, false)

	ts := httptest.NewServer(router)
	defer ts.Close()

	conn := dialWS(t, ts, "")

	if err := conn.WriteJSON(WSMessage{Type: "teleport", ID: "x"}); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}

	var resp WSMessage
	if err := json.Unmarshal(readText(t, conn), &resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Type != WSTypeError {
		t.Errorf("response type = %q, want error", resp.Type)
	}
}

func TestWebSocket_TicketRequiredWhenAuthEnabled(t *testing.T) {
	srv, router := newTestServer(t, true)

	ts := httptest.NewServer(router)
	defer ts.Close()

	// No ticket: handshake rejected.
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	if _, resp, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("dial without ticket should fail")
	} else if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake status = %d, want 401", resp.StatusCode)
	}

	// Valid ticket: connection accepted.
	ticket := srv.tickets.mint()
	conn := dialWS(t, ts, "?ticket="+ticket)
	conn.Close()

	// Tickets are single-use: the same ticket cannot be replayed.
	if _, resp, err := websocket.DefaultDialer.Dial(url+"?ticket="+ticket, nil); err == nil {
		t.Fatal("replayed ticket should be rejected")
	} else if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("replay handshake status = %d, want 401", resp.StatusCode)
	}
}

func TestHub_ClientCount(t *testing.T) {
	srv, router := newTestServer(t, false)

	ts := httptest.NewServer(router)
	defer ts.Close()

	if got := srv.hub.ClientCount(); got != 0 {
		t.Fatalf("initial client count = %d, want 0", got)
	}

	conn := dialWS(t, ts, "")

	waitFor(t, func() bool { return srv.hub.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return srv.hub.ClientCount() == 0 })
}

// waitForValue polls the registry until the control reaches the value or
// the test times out. WebSocket frames apply asynchronously.
func waitForValue(t *testing.T, srv *Server, id int, want float64) {
	t.Helper()
	waitFor(t, func() bool {
		c, err := srv.registry.Get(context.Background(), id)
		return err == nil && c.Value == want
	})
}

// waitFor polls cond until true or the test deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(wsTestTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
