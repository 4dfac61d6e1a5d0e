package qq

import "time"

// GatewayBot is returned by GET /gateway/bot.
type GatewayBot struct {
	URL               string            `json:"url"`
	Shards            int32             `json:"shards"`
	SessionStartLimit SessionStartLimit `json:"session_start_limit"`
}

type SessionStartLimit struct {
	Total          int32 `json:"total"`
	Remaining      int32 `json:"remaining"`
	ResetAfter     int64 `json:"reset_after"`
	MaxConcurrency int32 `json:"max_concurrency"`
}

// Guild is an entry of GET /users/@me/guilds.
type Guild struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Owner       bool      `json:"owner"`
	MemberCount int32     `json:"member_count"`
	MaxMembers  int32     `json:"max_members"`
	Description string    `json:"description,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

type Member struct {
	Nick     string    `json:"nick,omitempty"`
	Roles    []string  `json:"roles,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message is the body of message dispatches and of GET /channels/{channel_id}/messages/{message_id}.
type Message struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channel_id"`
	GuildID      string    `json:"guild_id"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	Author       *User     `json:"author,omitempty"`
	Member       *Member   `json:"member,omitempty"`
	SeqInChannel string    `json:"seq_in_channel,omitempty"`
}

// APIError is the error body returned by the REST api.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}
