package receiver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/casaops/go-smarther/internal/config"
)

func dialHub(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// waitForConsumers blocks until the hub has registered the expected number of
// connections; registration happens on the server goroutine after the
// handshake, so a successful dial alone is not enough.
func waitForConsumers(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		n := len(h.clients)
		h.mu.Unlock()
		if n >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d consumers", want)
}

func TestHubRelaysAcceptedEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := New(config.ReceiverConfig{})
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	conn := dialHub(t, srv, "/events/ws")
	waitForConsumers(t, r.hub, 1)

	resp, err := http.Post(srv.URL+"/events", "application/json", strings.NewReader(sampleNotification))
	if err != nil {
		t.Fatalf("notification post failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("notification status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("websocket read failed: %v", err)
	}
	if got := gjson.GetBytes(message, "id").String(); got != "evt-1" {
		t.Errorf("relayed event id = %q, want %q", got, "evt-1")
	}
	if got := gjson.GetBytes(message, "receivedAt").String(); got == "" {
		t.Error("relayed event should carry the stamped receivedAt")
	}
}

func TestHubFansOutToMultipleConsumers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := New(config.ReceiverConfig{})
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	first := dialHub(t, srv, "/events/ws")
	second := dialHub(t, srv, "/events/ws")
	waitForConsumers(t, r.hub, 2)

	resp, err := http.Post(srv.URL+"/events", "application/json", strings.NewReader(`{"id":"evt-fanout"}`))
	if err != nil {
		t.Fatalf("notification post failed: %v", err)
	}
	_ = resp.Body.Close()

	for i, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, errRead := conn.ReadMessage()
		if errRead != nil {
			t.Fatalf("consumer %d read failed: %v", i, errRead)
		}
		if got := gjson.GetBytes(message, "id").String(); got != "evt-fanout" {
			t.Errorf("consumer %d event id = %q, want %q", i, got, "evt-fanout")
		}
	}
}

func TestHubStopDisconnectsConsumers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := New(config.ReceiverConfig{})
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	conn := dialHub(t, srv, "/events/ws")
	waitForConsumers(t, r.hub, 1)
	r.hub.Stop()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("consumer should be disconnected after the hub stops")
	}
}
