// Package github provides the GitHub REST client and the curated catalog
// data client used by the hub.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/addonhub/addonhub/internal/httpclient"
)

// ReserveCalls is how much of the rate limit is always kept in reserve
// for interactive use
const ReserveCalls = 1000

// CallsPerAddon is the API call budget assumed per add-on update
const CallsPerAddon = 10

// Client defines the GitHub API operations the hub depends on
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/addonhub/addonhub/internal/github Client
type Client interface {
	// GetRepository fetches repository metadata. A non-empty etag makes the
	// request conditional; ErrNotModified is returned on a 304 answer.
	GetRepository(ctx context.Context, fullName, etag string) (*Repository, error)

	// ListReleases fetches the most recent published releases
	ListReleases(ctx context.Context, fullName string) ([]Release, error)

	// GetRateLimit fetches the core rate-limit state
	GetRateLimit(ctx context.Context) (*RateLimit, error)
}

// defaultClient implements Client against the GitHub REST API
type defaultClient struct {
	http    httpclient.Client
	baseURL string
	token   string
}

// ClientOption configures the client
type ClientOption func(*defaultClient)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(c httpclient.Client) ClientOption {
	return func(g *defaultClient) {
		g.http = c
	}
}

// WithToken sets the access token used for authenticated requests
func WithToken(token string) ClientOption {
	return func(g *defaultClient) {
		g.token = token
	}
}

// NewClient creates a GitHub client for the given API base URL
func NewClient(baseURL string, opts ...ClientOption) Client {
	c := &defaultClient{
		http:    httpclient.NewDefaultClient(0),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRepository fetches repository metadata
func (c *defaultClient) GetRepository(ctx context.Context, fullName, etag string) (*Repository, error) {
	url := fmt.Sprintf("%s/repos/%s", c.baseURL, fullName)

	resp, err := c.get(ctx, url, httpclient.WithETag(etag))
	if err != nil {
		return nil, c.wrapError("get repository", fullName, err)
	}
	if resp.NotModified() {
		return nil, ErrNotModified
	}

	var repo Repository
	if err := json.Unmarshal(resp.Body, &repo); err != nil {
		return nil, fmt.Errorf("failed to decode repository %s: %w", fullName, err)
	}
	repo.ETag = resp.ETag
	return &repo, nil
}

// ListReleases fetches the most recent published releases
func (c *defaultClient) ListReleases(ctx context.Context, fullName string) ([]Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases?per_page=30", c.baseURL, fullName)

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, c.wrapError("list releases", fullName, err)
	}

	var releases []Release
	if err := json.Unmarshal(resp.Body, &releases); err != nil {
		return nil, fmt.Errorf("failed to decode releases for %s: %w", fullName, err)
	}
	return releases, nil
}

// GetRateLimit fetches the core rate-limit state
func (c *defaultClient) GetRateLimit(ctx context.Context) (*RateLimit, error) {
	url := c.baseURL + "/rate_limit"

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, c.wrapError("get rate limit", "", err)
	}

	var payload struct {
		Resources struct {
			Core RateLimit `json:"core"`
		} `json:"resources"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode rate limit: %w", err)
	}
	return &payload.Resources.Core, nil
}

func (c *defaultClient) get(ctx context.Context, url string, opts ...httpclient.RequestOption) (*httpclient.Response, error) {
	opts = append(opts, httpclient.WithHeader("Accept", "application/vnd.github+json"))
	if c.token != "" {
		opts = append(opts, httpclient.WithHeader("Authorization", "Bearer "+c.token))
	}
	return c.http.Get(ctx, url, opts...)
}

// wrapError maps transport and HTTP failures into the remote-service error
// taxonomy. Everything coming out of here is a ServiceError (or one of its
// refinements); decode failures never pass through this path.
func (c *defaultClient) wrapError(operation, resource string, err error) error {
	svcErr := &ServiceError{
		Operation: operation,
		Resource:  resource,
		Err:       err,
	}

	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		svcErr.StatusCode = httpErr.StatusCode

		switch httpErr.StatusCode {
		case http.StatusUnauthorized:
			return &AuthError{ServiceError: svcErr}
		case http.StatusForbidden, http.StatusTooManyRequests:
			// GitHub reports rate-limit exhaustion as 403 or 429. The exact
			// reset moment comes from a follow-up /rate_limit call; assume a
			// full window here.
			return &RateLimitError{ServiceError: svcErr, Reset: time.Now().Add(time.Hour)}
		}
	}

	return svcErr
}

// CanUpdate derives how many add-ons may be refreshed right now from the
// remaining rate limit: keep ReserveCalls in reserve and budget
// CallsPerAddon calls per add-on.
func CanUpdate(limit *RateLimit) int {
	remaining := limit.Remaining - ReserveCalls
	if remaining < CallsPerAddon {
		return 0
	}
	return remaining / CallsPerAddon
}
