package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v5"

	"github.com/addonhub/addonhub/internal/addon"
	"github.com/addonhub/addonhub/internal/httpclient"
)

// dataMaxTries bounds the retries for curated data fetches. These files sit
// behind a CDN; transient failures are common and cheap to retry, unlike
// API calls which are never retried.
const dataMaxTries = 4

// DataClient fetches the curated catalog data files: the default add-on
// list per category, the removed list and the critical list.
//
//go:generate mockgen -destination=mocks/mock_dataclient.go -package=mocks github.com/addonhub/addonhub/internal/github DataClient
type DataClient interface {
	// CategoryList returns the curated default add-on slugs for a category
	CategoryList(ctx context.Context, category addon.Category) ([]string, error)

	// RemovedList returns the curated removed-add-ons records
	RemovedList(ctx context.Context) ([]RemovedRecord, error)

	// CriticalList returns the curated critical-add-ons records
	CriticalList(ctx context.Context) ([]CriticalRecord, error)
}

// defaultDataClient implements DataClient over plain HTTPS file fetches
type defaultDataClient struct {
	http    httpclient.Client
	baseURL string
}

// DataClientOption configures the data client
type DataClientOption func(*defaultDataClient)

// WithDataHTTPClient overrides the underlying HTTP client
func WithDataHTTPClient(c httpclient.Client) DataClientOption {
	return func(d *defaultDataClient) {
		d.http = c
	}
}

// NewDataClient creates a data client for the given base URL
func NewDataClient(baseURL string, opts ...DataClientOption) DataClient {
	d := &defaultDataClient{
		http:    httpclient.NewDefaultClient(0),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CategoryList returns the curated default add-on slugs for a category
func (d *defaultDataClient) CategoryList(ctx context.Context, category addon.Category) ([]string, error) {
	var list []string
	if err := d.fetchJSON(ctx, fmt.Sprintf("%s/%s/repositories.json", d.baseURL, category), &list); err != nil {
		return nil, fmt.Errorf("failed to fetch %s list: %w", category, err)
	}
	return list, nil
}

// RemovedList returns the curated removed-add-ons records
func (d *defaultDataClient) RemovedList(ctx context.Context) ([]RemovedRecord, error) {
	var list []RemovedRecord
	if err := d.fetchJSON(ctx, d.baseURL+"/removed/repositories.json", &list); err != nil {
		return nil, fmt.Errorf("failed to fetch removed list: %w", err)
	}
	return list, nil
}

// CriticalList returns the curated critical-add-ons records
func (d *defaultDataClient) CriticalList(ctx context.Context) ([]CriticalRecord, error) {
	var list []CriticalRecord
	if err := d.fetchJSON(ctx, d.baseURL+"/critical/repositories.json", &list); err != nil {
		return nil, fmt.Errorf("failed to fetch critical list: %w", err)
	}
	return list, nil
}

// fetchJSON fetches a data file with exponential backoff and decodes it.
// Client errors (4xx) are permanent; everything else is retried.
func (d *defaultDataClient) fetchJSON(ctx context.Context, url string, out any) error {
	operation := func() ([]byte, error) {
		resp, err := d.http.Get(ctx, url)
		if err != nil {
			var httpErr *httpclient.HTTPError
			if errors.As(err, &httpErr) &&
				httpErr.StatusCode >= http.StatusBadRequest &&
				httpErr.StatusCode < http.StatusInternalServerError {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return resp.Body, nil
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(dataMaxTries),
	)
	if err != nil {
		return &ServiceError{Operation: "fetch data file", Resource: url, Err: err}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return nil
}
