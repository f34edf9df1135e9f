package push

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// client is one websocket connection. rooms is guarded by hub.mu.
type client struct {
	hub   *Hub
	conn  *websocket.Conn
	rooms map[string]struct{}

	sendMu sync.Mutex
	send   chan []byte
	done   bool
}

// enqueue queues msg without blocking. It returns false when the buffer is
// full or the client is closed.
func (c *client) enqueue(msg []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.done {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) reply(event Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.enqueue(msg)
}

func (c *client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.done {
		return
	}
	c.done = true
	close(c.send)
}

// readPump handles client requests until the connection fails.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, r, err := c.conn.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("push client read failed", "error", err)
			}
			return
		}

		// Any frame that does not decode, empty or truncated included, is a
		// bad request. A broken connection surfaces on the next NextReader.
		var req Request
		if err := json.NewDecoder(r).Decode(&req); err != nil {
			c.reply(Event{Event: EventError, Error: "invalid request"})
			continue
		}

		if !validRoom(req.Room) {
			c.reply(Event{Event: EventError, Room: req.Room, Error: "invalid room"})
			continue
		}

		switch req.Action {
		case ActionSubscribe:
			c.hub.join(c, req.Room)
			c.reply(Event{Event: EventSubscribed, Room: req.Room})
		case ActionUnsubscribe:
			c.hub.leave(c, req.Room)
			c.reply(Event{Event: EventUnsubscribed, Room: req.Room})
		default:
			c.reply(Event{Event: EventError, Room: req.Room, Error: "unknown action"})
		}
	}
}

// writePump is the only writer on the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
