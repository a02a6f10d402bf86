package receiver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	readTimeout       = 60 * time.Second
	writeTimeout      = 10 * time.Second
	heartbeatInterval = 30 * time.Second
	clientSendBuffer  = 16
)

// Hub fans accepted events out to connected websocket consumers. A consumer
// that cannot keep up is dropped; ingestion never blocks on delivery.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *hubClient) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// HandleUpgrade upgrades the request to a websocket connection and registers
// it with the hub.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := &hubClient{conn: conn, send: make(chan []byte, clientSendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	log.Debugf("websocket consumer connected from %s", conn.RemoteAddr())
	go h.writePump(client)
	go h.readPump(client)
}

// Broadcast delivers raw event JSON to every connected consumer, dropping any
// whose send buffer is full.
func (h *Hub) Broadcast(raw []byte) {
	h.mu.Lock()
	var stale []*hubClient
	for client := range h.clients {
		select {
		case client.send <- raw:
		default:
			stale = append(stale, client)
			delete(h.clients, client)
		}
	}
	h.mu.Unlock()

	for _, client := range stale {
		log.Warnf("dropping slow websocket consumer %s", client.conn.RemoteAddr())
		client.close()
	}
}

// Stop disconnects every consumer.
func (h *Hub) Stop() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*hubClient]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

func (h *Hub) remove(client *hubClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	client.close()
}

// writePump owns all writes on the connection: queued events plus heartbeat
// pings.
func (h *Hub) writePump(client *hubClient) {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()
	for {
		select {
		case raw, ok := <-client.send:
			if !ok {
				_ = client.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
				return
			}
			if err := client.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				h.remove(client)
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				h.remove(client)
				return
			}
		case <-ticker.C:
			if err := client.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				h.remove(client)
				return
			}
		}
	}
}

// readPump discards inbound frames; it exists to process control messages and
// to notice when the peer goes away.
func (h *Hub) readPump(client *hubClient) {
	defer h.remove(client)
	_ = client.conn.SetReadDeadline(time.Now().Add(readTimeout))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
		_ = client.conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}
