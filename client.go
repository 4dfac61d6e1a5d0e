package sandwich

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var UserAgent = fmt.Sprintf("Sandwich-QQBot/%s (https://github.com/WelcomerTeam/Sandwich-QQBot)", Version)

// NewProxyClient returns a copy of client whose requests are sent to egress
// instead of their own host. The path of egress prefixes the request path and
// the original host is passed along in X-Forwarded-Host.
func NewProxyClient(client http.Client, egress url.URL) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	client.Transport = &egressRoundTripper{
		base:   base,
		egress: egress,
		prefix: strings.TrimSuffix(egress.Path, "/"),
	}

	return &client
}

type egressRoundTripper struct {
	base   http.RoundTripper
	egress url.URL
	prefix string
}

func (rt *egressRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	upstream := req.URL.Host

	rewritten := req.Clone(req.Context())
	rewritten.Host = rt.egress.Host
	rewritten.URL.Host = rt.egress.Host
	rewritten.URL.Scheme = rt.egress.Scheme
	rewritten.URL.Path = rt.prefix + req.URL.Path

	if req.URL.RawPath != "" {
		rewritten.URL.RawPath = rt.prefix + req.URL.RawPath
	}

	rewritten.Header.Set("X-Forwarded-Host", upstream)

	res, err := rt.base.RoundTrip(rewritten)
	if err != nil {
		return nil, fmt.Errorf("egress %s: %w", rt.egress.Host, err)
	}

	return res, nil
}
