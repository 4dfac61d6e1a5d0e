package sandwich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/WelcomerTeam/Sandwich-QQBot/sandwichjson"
	"golang.org/x/oauth2"
)

const AccessTokenURL = "https://bots.qq.com/app/getAppAccessToken"

var ErrAccessTokenFailure = errors.New("failed to fetch app access token")

// Credentials authenticate the gateway identify and every REST request.
// Implementations never expose the secret through String.
type Credentials interface {
	BotToken(ctx context.Context) (string, error)
	NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error)
}

// StaticCredentials authenticate with the long lived bot token.
type StaticCredentials struct {
	AppID string
	Token string
}

func (c StaticCredentials) BotToken(_ context.Context) (string, error) {
	if c.AppID == "" || c.Token == "" {
		return "", ErrMissingBotToken
	}

	return "Bot " + c.AppID + "." + c.Token, nil
}

func (c StaticCredentials) NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	token, err := c.BotToken(ctx)
	if err != nil {
		return nil, err
	}

	return newAuthorizedRequest(ctx, method, url, body, token)
}

func (c StaticCredentials) String() string {
	return "StaticCredentials{AppID: " + c.AppID + ", Token: [redacted]}"
}

// AccessTokenCredentials authenticate with a short lived app access token
// exchanged for the app secret and cached until it expires.
type AccessTokenCredentials struct {
	AppID string

	url       string
	appSecret string
	client    *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// NewAccessTokenCredentials exchanges the app secret at endpoint, AccessTokenURL when empty.
func NewAccessTokenCredentials(appID, appSecret, endpoint string, client *http.Client) *AccessTokenCredentials {
	if endpoint == "" {
		endpoint = AccessTokenURL
	}

	if client == nil {
		client = &http.Client{Timeout: DefaultRESTTimeout}
	}

	return &AccessTokenCredentials{
		AppID:     appID,
		url:       endpoint,
		appSecret: appSecret,
		client:    client,
	}
}

// BotToken returns the cached access token, exchanging the secret again once
// it is about to expire. The exchange is bounded by ctx.
func (c *AccessTokenCredentials) BotToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, err := oauth2.ReuseTokenSource(c.token, &appAccessTokenSource{
		ctx:       ctx,
		url:       c.url,
		appID:     c.AppID,
		appSecret: c.appSecret,
		client:    c.client,
	}).Token()
	if err != nil {
		return "", err
	}

	c.token = token

	return "QQBot " + token.AccessToken, nil
}

func (c *AccessTokenCredentials) NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	token, err := c.BotToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := newAuthorizedRequest(ctx, method, url, body, token)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-Union-Appid", c.AppID)

	return req, nil
}

func (c *AccessTokenCredentials) String() string {
	return "AccessTokenCredentials{AppID: " + c.AppID + ", Secret: [redacted]}"
}

type appAccessTokenRequest struct {
	AppID        string `json:"appId"`
	ClientSecret string `json:"clientSecret"`
}

type appAccessTokenResponse struct {
	AccessToken string                  `json:"access_token"`
	ExpiresIn   sandwichjson.RawMessage `json:"expires_in"`
	Code        int                     `json:"code,omitempty"`
	Message     string                  `json:"message,omitempty"`
}

type appAccessTokenSource struct {
	ctx       context.Context
	url       string
	appID     string
	appSecret string
	client    *http.Client
}

func (s *appAccessTokenSource) Token() (*oauth2.Token, error) {
	body, err := sandwichjson.Marshal(appAccessTokenRequest{AppID: s.appID, ClientSecret: s.appSecret})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccessTokenFailure, err)
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccessTokenFailure, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccessTokenFailure, err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrAccessTokenFailure, res.StatusCode)
	}

	var response appAccessTokenResponse

	if err = sandwichjson.UnmarshalReader(res.Body, &response); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccessTokenFailure, err)
	}

	if response.AccessToken == "" {
		return nil, fmt.Errorf("%w: code %d: %s", ErrAccessTokenFailure, response.Code, response.Message)
	}

	// expires_in is sent as a quoted number.
	expiresIn, err := strconv.ParseInt(strings.Trim(string(response.ExpiresIn), `"`), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expires_in: %w", ErrAccessTokenFailure, err)
	}

	return &oauth2.Token{
		AccessToken: response.AccessToken,
		TokenType:   "QQBot",
		Expiry:      time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

func newAuthorizedRequest(ctx context.Context, method, url string, body io.Reader, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", token)
	req.Header.Set("User-Agent", UserAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}
