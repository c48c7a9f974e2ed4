package gateway

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	// Inbound is ping/pong and small resubscribe hints only.
	maxMessageSize = 4096
)

// Client is a single WebSocket connection managed by the Hub.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// sendInitialState replays the latest payload of every channel so a
// reconnecting dashboard does not render empty panels until the next
// bar close. lastTS, when parseable, suppresses entries the client
// already has.
func (c *Client) sendInitialState(lastTS string) {
	var cutoff time.Time
	if lastTS != "" {
		if t, err := time.Parse(time.RFC3339Nano, lastTS); err == nil {
			cutoff = t
		}
	}

	c.hub.mu.RLock()
	entries := make(map[string]latestEntry, len(c.hub.latest))
	for ch, e := range c.hub.latest {
		entries[ch] = e
	}
	c.hub.mu.RUnlock()

	for ch, e := range entries {
		if !cutoff.IsZero() && !e.TS.After(cutoff) {
			continue
		}
		buf := make([]byte, 0, len(ch)+len(e.Data)+64)
		buf = append(buf, `{"channel":"`...)
		buf = append(buf, ch...)
		buf = append(buf, `","data":`...)
		buf = append(buf, e.Data...)
		buf = append(buf, `,"replay":true}`...)
		select {
		case c.send <- buf:
		default:
			return
		}
	}
}

// writePump drains the send channel to the connection. Queued messages
// are coalesced into a single WebSocket frame, newline-separated, which
// keeps syscall count down when a bar close fans out several channels
// at once.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames to service the pong handler. Any
// read error removes the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		slog.Info("ws client disconnected", "total", c.hub.ClientCount())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ws read error", "err", err)
			}
			return
		}
	}
}
