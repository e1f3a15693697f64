// Package stream exposes the player's event bus over WebSocket so UIs
// can follow wire traffic live.
package stream

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Local control surface, origin is not meaningful
	},
}

// EventSource is the slice of the player driver the stream needs.
type EventSource interface {
	RegisterSubscriber(fn func(string), match string) func()
}

// eventMessage is one wire event pushed to a connected client.
type eventMessage struct {
	Message    string `json:"message"`
	ReceivedAt string `json:"received_at"`
}

// client wraps one WebSocket connection. Writes are serialized because
// events arrive from the driver's notify goroutines.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg eventMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// RegisterRoutes wires the event stream endpoint to the router.
func RegisterRoutes(router chi.Router, source EventSource, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	router.HandleFunc("/api/stream", streamHandler(source, logger))
}

// streamHandler upgrades the connection and forwards matching wire
// events until the client goes away. The optional match query
// parameter filters events by substring, same as the driver's
// subscriber bus.
func streamHandler(source EventSource, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade failed - error already written to response
			return
		}

		match := r.URL.Query().Get("match")
		cl := &client{conn: conn}

		unregister := source.RegisterSubscriber(func(event string) {
			msg := eventMessage{
				Message:    event,
				ReceivedAt: time.Now().UTC().Format(time.RFC3339),
			}
			if err := cl.send(msg); err != nil {
				logger.Printf("stream write failed: %v", err)
			}
		}, match)
		defer unregister()
		defer conn.Close()

		logger.Printf("stream client connected (match=%q)", match)

		// Drain the connection; the read unblocks with an error when
		// the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logger.Printf("stream client disconnected: %v", err)
				return
			}
		}
	}
}
