package sandwich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"nhooyr.io/websocket"
)

const (
	WebsocketReadLimit = 512 << 20

	MessageChannelBuffer = 64
)

// Transport is a duplex frame stream owned by a single session.
type Transport interface {
	ReadFrame(ctx context.Context) (Frame, error)
	WriteFrame(ctx context.Context, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens transports to a gateway url.
type Dialer interface {
	Dial(ctx context.Context, gatewayURL string) (Transport, error)
}

// WebsocketDialer dials the gateway with nhooyr.io/websocket.
type WebsocketDialer struct {
	HTTPClient *http.Client
	Header     http.Header
	ReadLimit  int64
}

// NewEgressDialer dials the gateway through the same egress host as REST
// requests made with NewProxyClient. The client has no timeout, dials are
// bounded by their context.
func NewEgressDialer(egress url.URL) *WebsocketDialer {
	return &WebsocketDialer{HTTPClient: NewProxyClient(http.Client{}, egress)}
}

func (d *WebsocketDialer) Dial(ctx context.Context, gatewayURL string) (Transport, error) {
	conn, _, err := websocket.Dial(ctx, gatewayURL, &websocket.DialOptions{
		HTTPClient:      d.HTTPClient,
		HTTPHeader:      d.Header,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to websocket: %w", err)
	}

	readLimit := d.ReadLimit
	if readLimit <= 0 {
		readLimit = WebsocketReadLimit
	}

	conn.SetReadLimit(readLimit)

	return &websocketTransport{conn: conn}, nil
}

type websocketTransport struct {
	conn *websocket.Conn
}

func (t *websocketTransport) ReadFrame(ctx context.Context) (Frame, error) {
	messageType, data, err := t.conn.Read(ctx)
	if err != nil {
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			return Frame{Kind: FrameClose, CloseCode: closeErr.Code, CloseReason: closeErr.Reason}, nil
		}

		return Frame{}, err
	}

	if messageType == websocket.MessageBinary {
		return Frame{Kind: FrameBinary, Data: data}, nil
	}

	return Frame{Kind: FrameText, Data: data}, nil
}

func (t *websocketTransport) WriteFrame(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *websocketTransport) Close(code websocket.StatusCode, reason string) error {
	err := t.conn.Close(code, reason)

	// Closing an already closed connection is not a failure.
	var closeErr websocket.CloseError
	if err != nil && errors.As(err, &closeErr) {
		return nil
	}

	return err
}
