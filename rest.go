package sandwich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
	"github.com/WelcomerTeam/Sandwich-QQBot/sandwichjson"
)

const (
	RESTBaseURL        = "https://api.sgroup.qq.com"
	SandboxRESTBaseURL = "https://sandbox.api.sgroup.qq.com"

	DefaultRESTTimeout = 3 * time.Second
)

// RESTError is returned for any non 2xx response.
type RESTError struct {
	StatusCode int
	qq.APIError
}

func (e *RESTError) Error() string {
	return fmt.Sprintf("rest request failed with status %d: code %d: %s", e.StatusCode, e.Code, e.Message)
}

func (e *RESTError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrInvalidToken
	}

	return nil
}

// GatewayResolver resolves the gateway url and session start limits.
type GatewayResolver interface {
	GatewayBot(ctx context.Context) (*qq.GatewayBot, error)
}

type RESTClient struct {
	BaseURL string
	HTTP    *http.Client

	credentials Credentials
}

func NewRESTClient(credentials Credentials, sandbox bool) *RESTClient {
	baseURL := RESTBaseURL
	if sandbox {
		baseURL = SandboxRESTBaseURL
	}

	return &RESTClient{
		BaseURL:     baseURL,
		HTTP:        &http.Client{Timeout: DefaultRESTTimeout},
		credentials: credentials,
	}
}

// Fetch performs an authenticated request and decodes the response into structure when it is not nil.
func (c *RESTClient) Fetch(ctx context.Context, method, endpoint string, body io.Reader, structure any) error {
	req, err := c.credentials.NewRequest(ctx, method, c.BaseURL+endpoint, body)
	if err != nil {
		return err
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to do request: %w", err)
	}

	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		restErr := &RESTError{StatusCode: res.StatusCode}

		// The body is informational only.
		_ = sandwichjson.UnmarshalReader(res.Body, &restErr.APIError)

		return restErr
	}

	if structure == nil {
		return nil
	}

	if err = sandwichjson.UnmarshalReader(res.Body, structure); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *RESTClient) GatewayBot(ctx context.Context) (*qq.GatewayBot, error) {
	gateway := &qq.GatewayBot{}

	if err := c.Fetch(ctx, http.MethodGet, "/gateway/bot", nil, gateway); err != nil {
		return nil, fmt.Errorf("failed to get gateway: %w", err)
	}

	if gateway.URL == "" {
		return nil, ErrMissingGatewayURL
	}

	return gateway, nil
}

func (c *RESTClient) CurrentUser(ctx context.Context) (*qq.User, error) {
	user := &qq.User{}

	if err := c.Fetch(ctx, http.MethodGet, "/users/@me", nil, user); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return user, nil
}

func (c *RESTClient) CurrentUserGuilds(ctx context.Context) ([]qq.Guild, error) {
	var guilds []qq.Guild

	if err := c.Fetch(ctx, http.MethodGet, "/users/@me/guilds", nil, &guilds); err != nil {
		return nil, fmt.Errorf("failed to get guilds: %w", err)
	}

	return guilds, nil
}

func (c *RESTClient) ChannelMessage(ctx context.Context, channelID, messageID string) (*qq.Message, error) {
	var response struct {
		Message qq.Message `json:"message"`
	}

	endpoint := "/channels/" + url.PathEscape(channelID) + "/messages/" + url.PathEscape(messageID)

	if err := c.Fetch(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &response.Message, nil
}
