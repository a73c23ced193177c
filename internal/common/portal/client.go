// Package portal is the REST client for the onboarding backend.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	stderrors "sme-onboarding/internal/common/errors"
	commonhttp "sme-onboarding/internal/common/http"
	"sme-onboarding/internal/common/logger"
)

type Client struct {
	baseURL    string
	httpClient *commonhttp.Client
	logger     logger.Logger
}

// NewClient builds a client against baseURL. httpClient should be an
// authorized client so every call carries the bearer token.
func NewClient(baseURL string, httpClient *commonhttp.Client, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     log.WithFields(map[string]interface{}{"component": "portal"}),
	}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. It returns the raw body so callers can inspect loosely shaped
// responses.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) ([]byte, error) {
	url := c.baseURL + path

	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Backend returned error status", map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
			"body":   string(body),
		})
		if resp.StatusCode == http.StatusUnauthorized {
			return body, stderrors.NewUnauthorizedError(path, string(body))
		}
		return body, stderrors.NewBackendRequestFailedError(method, path, resp.StatusCode, string(body))
	}

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return body, fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return body, nil
}

// ResponseStatus extracts the HTTP status and body from an error returned
// by the client, looking through wrapping errors. It returns 0 for
// transport failures.
func ResponseStatus(err error) (int, string) {
	for e := err; e != nil; e = goerrors.Unwrap(e) {
		stdErr, ok := e.(*stderrors.StandardError)
		if !ok {
			continue
		}
		if status, ok := stdErr.Metadata["status"].(int); ok {
			return status, stdErr.Details
		}
	}
	return 0, ""
}

// decodeList accepts either a bare array or an object wrapping it under
// "data", which the backend uses interchangeably.
func decodeList(body []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	if len(wrapped.Data) == 0 || string(wrapped.Data) == "null" {
		return nil
	}
	return json.Unmarshal(wrapped.Data, out)
}
