package sandwich_test

import (
	"net"
	"net/http"
	"testing"

	sandwich "github.com/WelcomerTeam/Sandwich-QQBot"
	"github.com/WelcomerTeam/Sandwich-QQBot/sandwichjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newStatusClient(t *testing.T, rest *sandwich.RESTClient) (*fasthttp.Client, *sandwich.Application) {
	t.Helper()

	app := sandwich.NewApplication(testConfiguration(), sandwich.ApplicationOptions{
		Logger:      zerolog.Nop(),
		Resolver:    staticResolver{gateway: testGateway},
		Dialer:      &sequenceDialer{},
		Credentials: testCredentials,
		Producer:    &recordingProducer{},
	})

	registry := prometheus.NewRegistry()
	sandwich.RegisterMetrics(registry)

	status := sandwich.NewStatusServer(app, rest, registry)

	listener := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: status.Handler()}

	go func() {
		_ = server.Serve(listener)
	}()

	t.Cleanup(func() {
		_ = server.Shutdown()
	})

	client := &fasthttp.Client{
		Dial: func(string) (net.Conn, error) {
			return listener.Dial()
		},
	}

	return client, app
}

func get(t *testing.T, client *fasthttp.Client, path string) (int, []byte) {
	t.Helper()

	status, body, err := client.Get(nil, "http://sandwich"+path)
	require.NoError(t, err)

	return status, body
}

func TestStatusServerStatus(t *testing.T) {
	t.Parallel()

	client, app := newStatusClient(t, newRESTServer(t))
	app.SetStatus(sandwich.ApplicationStatusBackoff)

	status, body := get(t, client, "/status")
	assert.Equal(t, http.StatusOK, status)

	var response struct {
		Ok       bool                    `json:"ok"`
		Response sandwich.StatusResponse `json:"response"`
	}

	require.NoError(t, sandwichjson.Unmarshal(body, &response))
	assert.True(t, response.Ok)
	assert.Equal(t, "test", response.Response.Identifier)
	assert.Equal(t, sandwich.Version, response.Response.Version)
	assert.Equal(t, "Backoff", response.Response.Status)
	assert.Empty(t, response.Response.SessionID)
}

func TestStatusServerLookups(t *testing.T) {
	t.Parallel()

	client, _ := newStatusClient(t, newRESTServer(t))

	status, body := get(t, client, "/guilds")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"name":"guild"`)

	status, body = get(t, client, "/channels/c1/messages/m1")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"content":"hello"`)

	status, body = get(t, client, "/channels/c1/messages/missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), `"ok":false`)
}

func TestStatusServerMetrics(t *testing.T) {
	t.Parallel()

	client, app := newStatusClient(t, newRESTServer(t))
	app.SetStatus(sandwich.ApplicationStatusRunning)

	status, body := get(t, client, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "sandwich_application_status")
}
