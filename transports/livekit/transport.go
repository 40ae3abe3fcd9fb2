package livekit

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tiger/oracle-voice-sessions/internal/realtime"
)

// WSTransport dials the signaling endpoint over websocket. Implements
// realtime.Transport.
type WSTransport struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewWSTransport(cfg Config) *WSTransport {
	return &WSTransport{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// Dial opens the signaling connection with the join token as bearer auth.
func (t *WSTransport) Dial(ctx context.Context, url string, token string) (realtime.Conn, error) {
	if url == "" {
		url = t.cfg.URL
	}
	if token == "" {
		return nil, fmt.Errorf("join token is required")
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := t.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: status=%d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return &wsConn{ws: ws}, nil
}

// wsConn serializes writes; gorilla permits one concurrent writer only.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) SendData(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.ws.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write data frame: %w", err)
	}
	return nil
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
	return c.ws.Close()
}
