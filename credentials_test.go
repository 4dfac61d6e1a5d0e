package sandwich_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sandwich "github.com/WelcomerTeam/Sandwich-QQBot"
	"github.com/WelcomerTeam/Sandwich-QQBot/sandwichjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCredentials(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)

	token, err := testCredentials.BotToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bot 1234.secret", token)

	req, err := testCredentials.NewRequest(ctx, http.MethodPost, "https://example.com/path", strings.NewReader("{}"))
	require.NoError(t, err)
	assert.Equal(t, "Bot 1234.secret", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, sandwich.UserAgent, req.Header.Get("User-Agent"))

	assert.NotContains(t, testCredentials.String(), "secret")

	_, err = sandwich.StaticCredentials{AppID: "1234"}.BotToken(ctx)
	assert.ErrorIs(t, err, sandwich.ErrMissingBotToken)
}

func TestAccessTokenCredentials(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		body, _ := io.ReadAll(r.Body)

		var request map[string]string
		if err := sandwichjson.Unmarshal(body, &request); err != nil || request["appId"] != "1234" || request["clientSecret"] != "app-secret" {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		_, _ = w.Write([]byte(`{"access_token":"short-lived","expires_in":"7200"}`))
	}))
	t.Cleanup(server.Close)

	credentials := sandwich.NewAccessTokenCredentials("1234", "app-secret", server.URL, server.Client())
	ctx := testContext(t)

	token, err := credentials.BotToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "QQBot short-lived", token)

	req, err := credentials.NewRequest(ctx, http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "QQBot short-lived", req.Header.Get("Authorization"))
	assert.Equal(t, "1234", req.Header.Get("X-Union-Appid"))
	assert.Empty(t, req.Header.Get("Content-Type"))

	assert.Equal(t, int32(1), calls.Load())
	assert.NotContains(t, credentials.String(), "app-secret")
}

func TestAccessTokenCredentialsFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":100016,"message":"invalid appid or secret"}`))
	}))
	t.Cleanup(server.Close)

	credentials := sandwich.NewAccessTokenCredentials("1234", "wrong", server.URL, server.Client())

	_, err := credentials.BotToken(testContext(t))
	require.ErrorIs(t, err, sandwich.ErrAccessTokenFailure)
	assert.Contains(t, err.Error(), "invalid appid or secret")
}

func TestAccessTokenCredentialsHonourContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	credentials := sandwich.NewAccessTokenCredentials("1234", "app-secret", server.URL, &http.Client{})

	ctx, cancel := context.WithTimeout(testContext(t), 50*time.Millisecond)
	defer cancel()

	started := time.Now()

	_, err := credentials.BotToken(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, sandwich.ErrAccessTokenFailure)
	assert.Less(t, time.Since(started), 5*time.Second)
}
