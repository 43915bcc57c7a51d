// Package client is an HTTP client for the mycloud API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"mycloud/pkg/models"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultRetryMax     = 3
	DefaultRetryWaitMin = 100 * time.Millisecond
	DefaultRetryWaitMax = 2 * time.Second
	DefaultTimeout      = 5 * time.Minute
)

// ErrMissingBaseURL is returned by New without a server URL.
var ErrMissingBaseURL = errors.New("base URL is required")

// APIError is a non-2xx response of the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "server returned status " + http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// RetryMax of zero uses DefaultRetryMax; a negative value disables retries.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// Client talks to a mycloud server. The session cookie obtained by Login is
// kept in a cookie jar and sent with every following request.
type Client struct {
	baseURL *url.URL
	http    *retryablehttp.Client
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme %q", baseURL.Scheme)
	}

	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	} else if cfg.RetryMax == 0 {
		cfg.RetryMax = DefaultRetryMax
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = DefaultRetryWaitMin
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = DefaultRetryWaitMax
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.RetryMax
	httpClient.RetryWaitMin = cfg.RetryWaitMin
	httpClient.RetryWaitMax = cfg.RetryWaitMax
	httpClient.Logger = nil
	httpClient.CheckRetry = retryPolicy
	httpClient.HTTPClient.Jar = jar
	httpClient.HTTPClient.Timeout = cfg.Timeout

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
	}, nil
}

// retryPolicy retries only when no response was received. Error responses
// are returned to the caller as they are.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if resp != nil {
		return false, nil
	}

	if err != nil {
		return true, nil //nolint:nilerr // retryablehttp reports the last error
	}

	return false, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends req and returns the response when the status is 2xx.
// Any other status is turned into an APIError and the body is closed.
func (c *Client) do(req *retryablehttp.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}
	return nil, apiErr
}

// doJSON sends req and decodes a 2xx JSON response into out, if out is not nil.
func (c *Client) doJSON(req *retryablehttp.Request, out any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login starts a session for username.
func (c *Client) Login(ctx context.Context, username string) error {
	payload, err := json.Marshal(map[string]string{"username": username})
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/login", nil), payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doJSON(req, nil)
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/logout", nil), nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

// ListFiles returns the tree of the files namespace.
func (c *Client) ListFiles(ctx context.Context) (*models.DirectoryTree, error) {
	return c.list(ctx, "/api/files")
}

// ListGallery returns the tree of the gallery namespace.
func (c *Client) ListGallery(ctx context.Context) (*models.DirectoryTree, error) {
	return c.list(ctx, "/api/gallery")
}

func (c *Client) list(ctx context.Context, path string) (*models.DirectoryTree, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, nil), nil)
	if err != nil {
		return nil, err
	}

	tree := models.NewDirectoryTree()
	if err := c.doJSON(req, tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Quota returns the quota status of the current user.
func (c *Client) Quota(ctx context.Context) (*models.QuotaStatus, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/quota", nil), nil)
	if err != nil {
		return nil, err
	}

	var status models.QuotaStatus
	if err := c.doJSON(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Download writes the file at path to w and returns the number of bytes copied.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint("/api/files/download", url.Values{"path": {path}}), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return io.Copy(w, resp.Body)
}
