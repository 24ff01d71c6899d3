package channel

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Transport is one live bidirectional connection to a namespace. The
// production implementation wraps a websocket; tests inject fakes.
type Transport interface {
	// ReadMessage blocks until the next inbound message or an error.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one outbound message.
	WriteMessage(data []byte) error

	// Close tears the connection down. ReadMessage unblocks with an error.
	Close() error
}

// Dialer opens a Transport to the given namespace, authenticated by token.
// The context bounds the handshake; a dial that neither succeeds nor fails
// within it must return ctx.Err().
type Dialer func(ctx context.Context, namespace, token string) (Transport, error)

// wsTransport adapts a gorilla websocket connection to Transport.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteMessage(data []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// WebSocketDialer returns a Dialer that connects to
// {socketURL}/{namespace}?token={token}. An http(s) base is rewritten to
// the ws(s) scheme.
func WebSocketDialer(socketURL string) Dialer {
	return func(ctx context.Context, namespace, token string) (Transport, error) {
		u, err := url.Parse(socketURL)
		if err != nil {
			return nil, fmt.Errorf("parsing socket url %s: %w", socketURL, err)
		}
		switch u.Scheme {
		case "http":
			u.Scheme = "ws"
		case "https":
			u.Scheme = "wss"
		}
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + namespace
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()

		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("dialing %s namespace (status %d): %w", namespace, resp.StatusCode, err)
			}
			return nil, fmt.Errorf("dialing %s namespace: %w", namespace, err)
		}
		return &wsTransport{conn: conn}, nil
	}
}
