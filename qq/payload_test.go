package qq_test

import (
	"testing"

	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
	"github.com/WelcomerTeam/Sandwich-QQBot/sandwichjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		kind qq.PayloadKind
	}{
		{name: "object", data: `{"heartbeat_interval":45000}`, kind: qq.PayloadDispatch},
		{name: "empty object", data: `{}`, kind: qq.PayloadDispatch},
		{name: "true", data: `true`, kind: qq.PayloadBool},
		{name: "false", data: ` false `, kind: qq.PayloadBool},
		{name: "integer", data: `100`, kind: qq.PayloadInt},
		{name: "negative integer", data: `-3`, kind: qq.PayloadInt},
		{name: "null", data: `null`, kind: qq.PayloadNone},
		{name: "absent", data: ``, kind: qq.PayloadNone},
	}

	for _, test := range tests {
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			payload, err := qq.DecodePayload([]byte(test.data))
			require.NoError(t, err)
			assert.Equal(t, test.kind, payload.Kind())
		})
	}
}

func TestDecodePayloadUnknownShape(t *testing.T) {
	t.Parallel()

	for _, data := range []string{`"hello"`, `[1,2]`, `1.5`, `{"shard":"zero"}`} {
		_, err := qq.DecodePayload([]byte(data))
		assert.ErrorIs(t, err, qq.ErrUnknownPayloadShape, data)
	}
}

func TestHelloPayload(t *testing.T) {
	t.Parallel()

	payload, err := qq.DecodePayload([]byte(`{"heartbeat_interval":45000}`))
	require.NoError(t, err)

	body := payload.Dispatch()
	require.NotNil(t, body)
	assert.Equal(t, int64(45000), body.HeartbeatInterval)
	assert.Equal(t, int64(45000), body.HeartbeatIntervalOrDefault())
	assert.Equal(t, []byte(`{"heartbeat_interval":45000}`), payload.Raw())

	_, isBool := payload.Bool()
	assert.False(t, isBool)
}

func TestHeartbeatIntervalDefault(t *testing.T) {
	t.Parallel()

	var body *qq.DispatchBody

	assert.Equal(t, qq.DefaultHeartbeatInterval, body.HeartbeatIntervalOrDefault())
	assert.Equal(t, int64(40000), (&qq.DispatchBody{}).HeartbeatIntervalOrDefault())
}

func TestReadyPayload(t *testing.T) {
	t.Parallel()

	var envelope qq.GatewayPayload

	err := sandwichjson.Unmarshal([]byte(`{"op":0,"s":1,"t":"READY","d":{"version":1,"session_id":"abc","user":{"id":"42","username":"bot1","bot":true},"shard":[0,1]}}`), &envelope)
	require.NoError(t, err)

	assert.Equal(t, qq.GatewayOpDispatch, envelope.Op)
	assert.Equal(t, int64(1), envelope.Sequence)
	assert.Equal(t, "READY", envelope.Type)

	body := envelope.Data.Dispatch()
	require.NotNil(t, body)
	require.NotNil(t, body.User)
	assert.Equal(t, "bot1", body.User.Username)
	assert.Equal(t, "abc", body.SessionID)
	assert.Equal(t, []int32{0, 1}, body.Shard)
}

func TestPayloadMarshal(t *testing.T) {
	t.Parallel()

	heartbeat, err := sandwichjson.Marshal(qq.NewHeartbeat(7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":1,"d":7}`, string(heartbeat))

	identify, err := sandwichjson.Marshal(qq.NewIdentify("Bot 1.abc", qq.DefaultIntents, 0, 1))
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":2,"d":{"token":"Bot 1.abc","intents":1140852224,"shard":[0,1]}}`, string(identify))

	ack, err := sandwichjson.Marshal(qq.GatewayPayload{Op: qq.GatewayOpHeartbeatACK, Data: qq.NewBoolPayload(true)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":11,"d":true}`, string(ack))

	empty, err := sandwichjson.Marshal(qq.GatewayPayload{Op: qq.GatewayOpHeartbeat})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":1,"d":null}`, string(empty))
}

func TestPayloadEqualIgnoresRaw(t *testing.T) {
	t.Parallel()

	decoded, err := qq.DecodePayload([]byte(" 42 "))
	require.NoError(t, err)

	assert.Equal(t, "42", string(decoded.Raw()))
	assert.Empty(t, qq.NewIntPayload(42).Raw())
	assert.True(t, qq.NewIntPayload(42).Equal(decoded))
	assert.False(t, qq.NewIntPayload(43).Equal(decoded))
	assert.False(t, qq.NewBoolPayload(true).Equal(decoded))

	body, err := qq.DecodePayload([]byte(`{"session_id":"s1","user":{"id":"1","username":"bot1"}}`))
	require.NoError(t, err)

	built := qq.NewDispatchPayload(&qq.DispatchBody{SessionID: "s1", User: &qq.User{ID: "1", Username: "bot1"}})
	assert.True(t, built.Equal(body))
	assert.True(t, qq.Payload{}.Equal(qq.Payload{}))
}

func TestGatewayOpString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hello", qq.GatewayOpHello.String())
	assert.Equal(t, "Unknown(255)", qq.GatewayOp(255).String())
}
