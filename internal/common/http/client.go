package http

import (
	"net/http"
	"time"
)

// TokenSource returns the current bearer token, or "" when signed out.
type TokenSource func() string

// Client is a thin wrapper over net/http. An authorized client attaches
// "Authorization: Bearer <token>" to every request; a bare client never
// adds headers, which is what presigned storage URLs require.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient returns a bare client.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewAuthorizedClient returns a client that injects the bearer token from tokens.
func NewAuthorizedClient(timeout time.Duration, tokens TokenSource) *Client {
	c := NewClient(timeout)
	c.tokens = tokens
	return c
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.tokens != nil {
		if token := c.tokens(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return c.httpClient.Do(req)
}

