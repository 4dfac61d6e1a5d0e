package sandwich_test

import (
	"testing"

	sandwich "github.com/WelcomerTeam/Sandwich-QQBot"
	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textFrame(data string) sandwich.Frame {
	return sandwich.Frame{Kind: sandwich.FrameText, Data: []byte(data)}
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	payloads := []qq.GatewayPayload{
		qq.NewHeartbeat(0),
		qq.NewHeartbeat(42),
		qq.NewIdentify("Bot 1.token", qq.DefaultIntents, 0, 1),
		{Op: qq.GatewayOpHeartbeatACK, Data: qq.NewBoolPayload(true)},
		{Op: qq.GatewayOpDispatch, Sequence: 3, Type: "READY", Data: qq.NewDispatchPayload(&qq.DispatchBody{
			Version:   1,
			SessionID: "session",
			User:      &qq.User{ID: "1", Username: "bot1", Bot: true},
		})},
	}

	for _, payload := range payloads {
		encoded, err := sandwich.Encode(payload)
		require.NoError(t, err)

		decoded, closed, err := sandwich.Decode(textFrame(string(encoded)))
		require.NoError(t, err)
		require.False(t, closed)

		assert.Equal(t, payload.Op, decoded.Op)
		assert.Equal(t, payload.Sequence, decoded.Sequence)
		assert.Equal(t, payload.Type, decoded.Type)
		assert.True(t, payload.Data.Equal(decoded.Data), "%s != %s", payload.Data.Kind(), decoded.Data.Kind())
		assert.Empty(t, payload.Data.Raw())

		if payload.Data.Kind() != qq.PayloadNone {
			assert.NotEmpty(t, decoded.Data.Raw())
		}

		reencoded, err := sandwich.Encode(*decoded)
		require.NoError(t, err)
		assert.JSONEq(t, string(encoded), string(reencoded))
	}
}

func TestCodecUnionDisambiguation(t *testing.T) {
	t.Parallel()

	hello, _, err := sandwich.Decode(textFrame(`{"op":10,"d":{"heartbeat_interval":45000}}`))
	require.NoError(t, err)
	assert.Equal(t, qq.GatewayOpHello, hello.Op)
	require.Equal(t, qq.PayloadDispatch, hello.Data.Kind())
	assert.Equal(t, int64(45000), hello.Data.Dispatch().HeartbeatInterval)

	heartbeat, _, err := sandwich.Decode(textFrame(`{"op":1,"d":100}`))
	require.NoError(t, err)
	value, ok := heartbeat.Data.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(100), value)

	ack, _, err := sandwich.Decode(textFrame(`{"op":11,"d":true}`))
	require.NoError(t, err)
	boolean, ok := ack.Data.Bool()
	assert.True(t, ok)
	assert.True(t, boolean)
}

func TestCodecCloseFrame(t *testing.T) {
	t.Parallel()

	payload, closed, err := sandwich.Decode(sandwich.Frame{Kind: sandwich.FrameClose, CloseCode: 4009})
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Nil(t, payload)
}

func TestCodecUnsupportedFrameKinds(t *testing.T) {
	t.Parallel()

	for _, kind := range []sandwich.FrameKind{sandwich.FrameBinary, sandwich.FramePing, sandwich.FramePong} {
		_, closed, err := sandwich.Decode(sandwich.Frame{Kind: kind, Data: []byte(`{"op":11}`)})
		assert.False(t, closed)
		assert.ErrorIs(t, err, sandwich.ErrUnsupportedFrameKind, kind.String())
		assert.ErrorIs(t, err, sandwich.ErrDecode)
	}
}

func TestCodecMalformedFrames(t *testing.T) {
	t.Parallel()

	for _, data := range []string{`not json`, ``, `null`, `[1]`, `{"op":`} {
		_, _, err := sandwich.Decode(textFrame(data))
		assert.ErrorIs(t, err, sandwich.ErrMalformedFrame, data)
	}
}

func TestCodecUnknownPayloadShape(t *testing.T) {
	t.Parallel()

	header, _, err := sandwich.Decode(textFrame(`{"op":0,"s":2,"t":"X","d":"text"}`))
	assert.ErrorIs(t, err, sandwich.ErrUnknownPayloadShape)
	assert.ErrorIs(t, err, sandwich.ErrDecode)
	assert.NotErrorIs(t, err, sandwich.ErrMalformedFrame)

	require.NotNil(t, header)
	assert.Equal(t, qq.GatewayOpDispatch, header.Op)
	assert.Equal(t, int64(2), header.Sequence)
	assert.Equal(t, "X", header.Type)
	assert.Equal(t, qq.PayloadNone, header.Data.Kind())
}

func TestCodecMissingPayload(t *testing.T) {
	t.Parallel()

	payload, _, err := sandwich.Decode(textFrame(`{"op":11}`))
	require.NoError(t, err)
	assert.Equal(t, qq.PayloadNone, payload.Data.Kind())
}
