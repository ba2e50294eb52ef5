package http

import (
	"net/http"
	"time"
)

// ClientConfig holds configuration for plain HTTP clients.
type ClientConfig struct {
	Timeout   time.Duration
	Transport http.RoundTripper
	UserAgent string
}

// NewClient creates an HTTP client. A nil config gives a 30s timeout.
func NewClient(config *ClientConfig) *http.Client {
	if config == nil {
		config = &ClientConfig{Timeout: 30 * time.Second}
	}

	transport := config.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if config.UserAgent != "" {
		transport = userAgentTransport{next: transport, agent: config.UserAgent}
	}

	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}

type userAgentTransport struct {
	next  http.RoundTripper
	agent string
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.next.RoundTrip(req)
}
