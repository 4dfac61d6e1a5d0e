package sandwich

import (
	"bytes"
	"fmt"

	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
	"github.com/WelcomerTeam/Sandwich-QQBot/sandwichjson"
	"nhooyr.io/websocket"
)

type FrameKind uint8

const (
	FrameText FrameKind = iota
	FrameBinary
	FrameClose
	FramePing
	FramePong
)

func (kind FrameKind) String() string {
	return []string{
		"Text",
		"Binary",
		"Close",
		"Ping",
		"Pong",
	}[kind]
}

// Frame is a single websocket frame as seen by the session.
type Frame struct {
	Kind FrameKind
	Data []byte

	CloseCode   websocket.StatusCode
	CloseReason string
}

type receivedPayload struct {
	Op       qq.GatewayOp            `json:"op"`
	Sequence int64                   `json:"s"`
	Type     string                  `json:"t"`
	Data     sandwichjson.RawMessage `json:"d"`
}

// Decode turns a frame into an envelope. A close frame reports closed with
// no envelope. Binary and control frames are refused. When only d fails to
// decode, the envelope header (op, s, t) is returned along with the error.
func Decode(frame Frame) (*qq.GatewayPayload, bool, error) {
	switch frame.Kind {
	case FrameText:
	case FrameClose:
		return nil, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedFrameKind, frame.Kind)
	}

	trimmed := bytes.TrimSpace(frame.Data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false, fmt.Errorf("%w: expected object", ErrMalformedFrame)
	}

	var received receivedPayload

	err := sandwichjson.Unmarshal(trimmed, &received)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	payload := &qq.GatewayPayload{
		Op:       received.Op,
		Sequence: received.Sequence,
		Type:     received.Type,
	}

	payload.Data, err = qq.DecodePayload(received.Data)
	if err != nil {
		return payload, false, fmt.Errorf("%w: op %d: %w", ErrDecode, received.Op, err)
	}

	return payload, false, nil
}

// Encode serializes an outbound envelope.
func Encode(payload qq.GatewayPayload) ([]byte, error) {
	res, err := sandwichjson.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return res, nil
}
