package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 10 * time.Second

// Client is one websocket connection. Outbound frames go through a buffered
// queue drained by writeLoop.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	haltOnce  sync.Once
	closeOnce sync.Once

	mu       sync.Mutex
	roomCode string
	playerID string
}

func NewClient(id string, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Binding returns the room and player this connection acts as, if any.
func (c *Client) Binding() (roomCode, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode, c.playerID
}

func (c *Client) Bind(roomCode, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = roomCode
	c.playerID = playerID
}

// UnbindFrom clears the binding only if it is still the given seat. A
// connection that has already moved to another seat keeps it.
func (c *Client) UnbindFrom(roomCode, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomCode == roomCode && c.playerID == playerID {
		c.roomCode = ""
		c.playerID = ""
	}
}

// Enqueue queues a frame for delivery. A client that cannot keep up is closed.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		log.Warn().Str("conn", c.id).Msg("Outbound queue full, closing connection")
		c.Close(websocket.StatusPolicyViolation, "outbound queue full")
		return false
	}
}

// Send marshals msg and queues it.
func (c *Client) Send(msg any) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("conn", c.id).Msg("Failed to marshal outbound message")
		return false
	}
	return c.Enqueue(data)
}

// Halt stops delivery of queued and future frames but leaves the socket open.
func (c *Client) Halt() {
	c.haltOnce.Do(func() {
		close(c.done)
	})
}

// Close halts delivery and closes the socket in the background.
func (c *Client) Close(code websocket.StatusCode, reason string) {
	c.Halt()
	c.closeOnce.Do(func() {
		if c.conn != nil {
			go c.conn.Close(code, reason)
		}
	})
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("conn", c.id).Msg("Write failed")
				c.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// writeNow bypasses the queue; used for last words before closing.
func (c *Client) writeNow(ctx context.Context, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}
