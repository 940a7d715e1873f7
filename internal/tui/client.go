package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// FrameMsg carries one frame from the server.
type FrameMsg struct {
	Frame domain.Frame
}

// ClosedMsg reports that the connection ended.
type ClosedMsg struct {
	Err error
}

// Client is a websocket chat connection.
type Client struct {
	conn *websocket.Conn
	msgs chan tea.Msg

	writeMu sync.Mutex
	once    sync.Once
}

// Dial connects to {server}/ws/{userID}. server is a ws:// or wss:// base URL.
func Dial(ctx context.Context, server, userID string) (*Client, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	target := strings.TrimRight(server, "/") + "/ws/" + url.PathEscape(userID)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	c := &Client{conn: conn, msgs: make(chan tea.Msg, 64)}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.msgs)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.msgs <- ClosedMsg{Err: err}
			return
		}
		var frame domain.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		c.msgs <- FrameMsg{Frame: frame}
	}
}

// Next waits for the next server message.
func (c *Client) Next() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-c.msgs
		if !ok {
			return nil
		}
		return msg
	}
}

// Send submits a question or command.
func (c *Client) Send(message string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(domain.InboundMessage{Type: string(domain.FrameUser), Message: message})
}

// Close sends a normal close frame and drops the connection.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
