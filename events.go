package sandwich

import (
	"context"
	"time"

	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
)

type EventKind uint8

const (
	EventDispatch EventKind = iota
	EventHello
	EventReady
	EventHeartbeatACK
	EventHeartbeatRequest
	EventInvalidSession
	EventLivenessFailure
	EventClosed
)

func (kind EventKind) String() string {
	return []string{
		"Dispatch",
		"Hello",
		"Ready",
		"HeartbeatACK",
		"HeartbeatRequest",
		"InvalidSession",
		"LivenessFailure",
		"Closed",
	}[kind]
}

// Event is what the session surfaces to the host for each step.
type Event struct {
	Kind       EventKind
	Op         qq.GatewayOp
	Type       string
	Sequence   int64
	Data       *qq.DispatchBody
	Raw        []byte
	ReceivedAt time.Time

	// Latency is the heartbeat round trip, set on EventHeartbeatACK.
	Latency time.Duration

	// Err is set on EventLivenessFailure.
	Err error

	CloseCode   int
	CloseReason string
}

// EventHandler consumes events produced by Session.Run.
type EventHandler func(ctx context.Context, event *Event) error

type GatewayHandler func(ctx context.Context, session *Session, msg *qq.GatewayPayload) (*Event, error)

var gatewayEvents = make(map[qq.GatewayOp]GatewayHandler)

// RegisterGatewayEvent sets the handler for an opcode. Handlers must be registered before any session is opened.
func RegisterGatewayEvent(op qq.GatewayOp, handler GatewayHandler) {
	gatewayEvents[op] = handler
}

// GatewayDispatch routes a decoded envelope to its opcode handler.
func (s *Session) GatewayDispatch(ctx context.Context, msg *qq.GatewayPayload) (*Event, error) {
	handler, ok := gatewayEvents[msg.Op]
	if !ok {
		return nil, ErrNoGatewayHandler
	}

	return handler(ctx, s, msg)
}
