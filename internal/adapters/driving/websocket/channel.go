// Package websocket carries chat frames over gorilla/websocket connections.
package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
)

// Ensure Channel implements driving.Channel
var _ driving.Channel = (*Channel)(nil)

// ErrClosed is returned by Send and Receive once the channel is closed.
var ErrClosed = errors.New("websocket channel closed")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = pongWait * 9 / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

// Channel is one chat connection. Frames are written by a single pump
// goroutine; Receive must only be called from one goroutine.
type Channel struct {
	conn   *websocket.Conn
	send   chan *domain.Frame
	closed chan struct{}
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger

	mu     sync.Mutex
	code   int
	reason string
}

// NewChannel wraps conn and starts its write pump.
func NewChannel(conn *websocket.Conn, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Channel{
		conn:   conn,
		send:   make(chan *domain.Frame, sendBuffer),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
		code:   websocket.CloseNormalClosure,
		logger: logger,
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.writePump()
	return c
}

// Receive blocks for the next text or binary message.
func (c *Channel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, ErrClosed
	default:
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			c.logger.Debug("websocket read error", "error", err)
		}
		c.Close(websocket.CloseNormalClosure, "")
		return nil, err
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	return data, nil
}

// Send queues frame for the write pump.
func (c *Channel) Send(ctx context.Context, frame *domain.Frame) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes queued frames, sends a close frame with code and reason,
// and closes the connection. Only the first call has any effect.
func (c *Channel) Close(code int, reason string) error {
	c.once.Do(func() {
		c.mu.Lock()
		c.code, c.reason = code, reason
		c.mu.Unlock()
		close(c.closed)
	})
	return nil
}

// Done is closed once the underlying connection is closed.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

func (c *Channel) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				c.Close(websocket.CloseNormalClosure, "")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseNormalClosure, "")
				return
			}
		case <-c.closed:
			c.flush()
			return
		}
	}
}

// flush writes frames queued before Close, then the close frame.
func (c *Channel) flush() {
	for {
		select {
		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				return
			}
			continue
		default:
		}
		break
	}

	c.mu.Lock()
	msg := websocket.FormatCloseMessage(c.code, c.reason)
	c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func (c *Channel) write(frame *domain.Frame) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame)
}
