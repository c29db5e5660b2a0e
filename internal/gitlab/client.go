package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

const (
	// DefaultGitLabURL is used when the configuration does not name a
	// self-managed instance.
	DefaultGitLabURL = "https://gitlab.com"

	// DefaultTimeout bounds every individual platform call (§5).
	DefaultTimeout = 30 * time.Second

	// MaxRetryAttempts and RetryDelayBase parameterize the bounded retry in
	// Retry: up to this many retries after the first attempt, with the delay
	// starting at RetryDelayBase and doubling between attempts (§7.3 "recoverable within a single call via bounded retry").
	MaxRetryAttempts = 3
	RetryDelayBase   = 1 * time.Second
)

// Client wraps the client-go SDK client with the project's retry policy.
type Client struct {
	client     *gitlab.Client
	baseURL    string
	token      string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration // initial backoff; doubles per attempt. Defaults to RetryDelayBase.
}

// NewClient creates a Client with the default timeout and retry budget.
func NewClient(token, baseURL string) (*Client, error) {
	return NewClientWithConfig(token, baseURL, DefaultTimeout, MaxRetryAttempts)
}

// NewClientWithConfig creates a Client with an explicit timeout and retry
// budget, used by tests that exercise non-default values.
func NewClientWithConfig(token, baseURL string, timeout time.Duration, maxRetries int) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("GitLab token cannot be empty")
	}

	if baseURL == "" {
		baseURL = DefaultGitLabURL
	}

	httpClient := &http.Client{
		Timeout: timeout,
	}

	gitlabClient, err := gitlab.NewClient(token, gitlab.WithBaseURL(baseURL), gitlab.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return &Client{
		client:     gitlabClient,
		baseURL:    baseURL,
		token:      token,
		timeout:    timeout,
		maxRetries: maxRetries,
		retryDelay: RetryDelayBase,
	}, nil
}

// GetProject retrieves project information by ID or path.
func (c *Client) GetProject(projectID interface{}) (*gitlab.Project, error) {
	if c.client == nil {
		return nil, fmt.Errorf("GitLab client not initialized")
	}

	project, _, err := c.client.Projects.GetProject(projectID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get project %v: %w", projectID, err)
	}

	return project, nil
}

// ResolveProjectID converts a project path (or numeric-string ID) to a
// numeric ID via ProjectManager.
func (c *Client) ResolveProjectID(projectIdentifier string) (int, error) {
	if c.client == nil {
		return 0, fmt.Errorf("GitLab client not initialized")
	}

	projectManager := NewProjectManager(c.client)
	return projectManager.ResolveProjectIdentifier(context.Background(), projectIdentifier)
}

// GetTimeout returns the per-call timeout applied by the adapter (§5).
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// GetGitLabClient returns the underlying SDK client, used by every
// PlatformAdapter call in adapter.go.
func (c *Client) GetGitLabClient() *gitlab.Client {
	return c.client
}

// isRetryableTransportError reports whether err represents a failure that is
// worth retrying within a single call: a transport-level failure (no
// response at all) or a 5xx from the platform. A 4xx is never retried since
// retrying would not change the outcome.
func isRetryableTransportError(resp *gitlab.Response, err error) bool {
	if err == nil {
		return false
	}
	if resp == nil || resp.Response == nil {
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError
}

// Retry invokes fn up to c.maxRetries+1 times, applying an exponentially
// doubling delay (starting at the client's retryDelay, RetryDelayBase by
// default) between attempts, and stops
// early once fn succeeds, returns a non-retryable error, or ctx is done.
// This is the §7.3 bounded-retry mechanism for platform transport errors;
// the adapter's read and write operations all route through it.
func (c *Client) Retry(ctx context.Context, fn func() (*gitlab.Response, error)) (*gitlab.Response, error) {
	attempts := c.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	delay := c.retryDelay
	if delay <= 0 {
		delay = RetryDelayBase
	}

	var resp *gitlab.Response
	var err error

	for attempt := 0; attempt < attempts; attempt++ {
		resp, err = fn()
		if !isRetryableTransportError(resp, err) {
			return resp, err
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return resp, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return resp, err
}
