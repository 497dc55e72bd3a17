// Package claudeapi is a read-only client for the Claude web API: projects, conversation lists
// and full conversation trees.
package claudeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL   = "https://claude.ai"
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "claudexport/1.0"
)

// Client is the Claude web API client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	leafCache  *ListCache

	bootOnce sync.Once
	orgID    string
	bootErr  error
}

// NewClient creates a new Claude web API client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RetryCount == 0 {
		config.RetryCount = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.With("component", "claude_client"),
		leafCache:  NewListCache(config.CacheTTL),
	}
}

// Bootstrap resolves the organization id exactly once. Every data call goes through it, so
// callers may use it as a readiness handshake before showing anything.
func (c *Client) Bootstrap(ctx context.Context) (string, error) {
	c.bootOnce.Do(func() {
		c.orgID, c.bootErr = c.resolveOrg(ctx)
	})
	return c.orgID, c.bootErr
}

func (c *Client) resolveOrg(ctx context.Context) (string, error) {
	if c.config.SessionKey == "" {
		return "", ErrNoSessionKey
	}
	if c.config.OrgID != "" {
		return c.config.OrgID, nil
	}

	var orgs []Organization
	if err := c.getJSON(ctx, "/api/organizations", &orgs); err != nil {
		return "", fmt.Errorf("failed to list organizations: %w", err)
	}
	if len(orgs) == 0 {
		return "", ErrNoOrganization
	}
	c.logger.Info("using organization", "org", orgs[0].UUID, "name", orgs[0].Name)
	return orgs[0].UUID, nil
}

// getJSON performs a GET and decodes a JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	logger := c.logger.With("method", "GET", "path", path)

	req, err := c.newRequest(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		logger.Warn("request failed", "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("received error response", "status_code", resp.StatusCode)
		return c.handleError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: "decode", URL: req.URL.String(), Err: err}
	}
	return nil
}

// newRequest creates a new HTTP request with the appropriate headers.
func (c *Client) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	url := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.AddCookie(&http.Cookie{Name: "sessionKey", Value: c.config.SessionKey})
	return req, nil
}

// doRequestWithRetry performs an HTTP request, retrying transport failures, 5xx and 429.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error

	logger := c.logger.With("method", "doRequestWithRetry", "url", req.URL.String())

	for i := 1; i <= c.config.RetryCount; i++ {
		resp, err := c.httpClient.Do(req.Clone(req.Context()))
		if err != nil {
			lastErr = &TransportError{Op: req.Method, URL: req.URL.String(), Err: err}
			logger.Debug("request attempt failed", "attempt", i, "error", err)
		} else if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = c.handleError(resp)
			resp.Body.Close()
			logger.Debug("server error, retrying", "attempt", i, "status_code", resp.StatusCode)
		} else {
			return resp, nil
		}

		if i == c.config.RetryCount {
			break
		}
		select {
		case <-req.Context().Done():
			return nil, &TransportError{Op: req.Method, URL: req.URL.String(), Err: req.Context().Err()}
		case <-time.After(GetRetryDelay(lastErr, i, c.config.RetryDelay)):
		}
	}

	logger.Warn("request failed after all retries", "retry_count", c.config.RetryCount, "error", lastErr)
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.RetryCount, lastErr)
}

// handleError processes error responses from the API.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read error body", URL: resp.Request.URL.String(), Err: err}
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
		RequestID:  resp.Header.Get("Request-Id"),
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Type = errResp.Error.Type
		apiErr.Message = errResp.Error.Message
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if _, err := strconv.Atoi(retryAfter); err == nil {
				apiErr.Details = map[string]interface{}{"retry_after": retryAfter}
			}
		}
	}

	return apiErr
}
