package qq

import "strconv"

// GatewayOp is the opcode carried by every gateway envelope.
type GatewayOp int

const (
	GatewayOpDispatch       GatewayOp = 0
	GatewayOpHeartbeat      GatewayOp = 1
	GatewayOpIdentify       GatewayOp = 2
	GatewayOpInvalidSession GatewayOp = 9
	GatewayOpHello          GatewayOp = 10
	GatewayOpHeartbeatACK   GatewayOp = 11
)

func (op GatewayOp) String() string {
	switch op {
	case GatewayOpDispatch:
		return "Dispatch"
	case GatewayOpHeartbeat:
		return "Heartbeat"
	case GatewayOpIdentify:
		return "Identify"
	case GatewayOpInvalidSession:
		return "InvalidSession"
	case GatewayOpHello:
		return "Hello"
	case GatewayOpHeartbeatACK:
		return "HeartbeatACK"
	default:
		return "Unknown(" + strconv.Itoa(int(op)) + ")"
	}
}

// DefaultHeartbeatInterval is used when hello does not carry an interval.
const DefaultHeartbeatInterval int64 = 40000

// GatewayPayload is the envelope of every frame sent or received on the gateway.
type GatewayPayload struct {
	Op       GatewayOp `json:"op"`
	Sequence int64     `json:"s,omitempty"`
	Type     string    `json:"t,omitempty"`
	Data     Payload   `json:"d"`
}

// DispatchBody is the structured variant of the envelope payload.
// Token, Intents and Shard are only ever populated by the client when identifying.
type DispatchBody struct {
	Token   string  `json:"token,omitempty"`
	Intents Intent  `json:"intents,omitempty"`
	Shard   []int32 `json:"shard,omitempty"`

	HeartbeatInterval int64 `json:"heartbeat_interval,omitempty"`

	Version   int    `json:"version,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	User      *User  `json:"user,omitempty"`
}

// HeartbeatIntervalOrDefault returns the hello interval in milliseconds, falling
// back to DefaultHeartbeatInterval when it is missing.
func (body *DispatchBody) HeartbeatIntervalOrDefault() int64 {
	if body == nil || body.HeartbeatInterval <= 0 {
		return DefaultHeartbeatInterval
	}

	return body.HeartbeatInterval
}

// User is the bot identity returned in READY and by the REST api.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Bot      bool   `json:"bot"`
}

// NewIdentify builds the identify envelope sent after hello.
func NewIdentify(token string, intents Intent, shardID, shardCount int32) GatewayPayload {
	return GatewayPayload{
		Op: GatewayOpIdentify,
		Data: NewDispatchPayload(&DispatchBody{
			Token:   token,
			Intents: intents,
			Shard:   []int32{shardID, shardCount},
		}),
	}
}

// NewHeartbeat builds a heartbeat envelope carrying the last received sequence.
func NewHeartbeat(sequence int64) GatewayPayload {
	return GatewayPayload{
		Op:   GatewayOpHeartbeat,
		Data: NewIntPayload(sequence),
	}
}
