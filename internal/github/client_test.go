package github_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addonhub/addonhub/internal/github"
)

// newTestServer creates a new test server with keep-alives disabled.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func TestClient_GetRepository(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/repo", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))

		w.Header().Set("ETag", `"v2"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"id": 12345,
			"full_name": "owner/repo",
			"description": "A test add-on",
			"default_branch": "main",
			"stargazers_count": 42,
			"topics": ["home", "automation"],
			"archived": false
		}`))
	}))
	defer server.Close()

	client := github.NewClient(server.URL, github.WithToken("secret"))
	repo, err := client.GetRepository(context.Background(), "owner/repo", "")

	require.NoError(t, err)
	assert.Equal(t, int64(12345), repo.ID)
	assert.Equal(t, "owner/repo", repo.FullName)
	assert.Equal(t, "A test add-on", repo.Description)
	assert.Equal(t, "main", repo.DefaultBranch)
	assert.Equal(t, 42, repo.StargazersCount)
	assert.Equal(t, `"v2"`, repo.ETag)
}

func TestClient_GetRepository_NotModified(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, `"v1"`, r.Header.Get("If-None-Match"))
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	client := github.NewClient(server.URL)
	repo, err := client.GetRepository(context.Background(), "owner/repo", `"v1"`)

	assert.Nil(t, repo)
	assert.ErrorIs(t, err, github.ErrNotModified)
	assert.False(t, github.IsServiceError(err), "304 is a signal, not a remote-service failure")
}

func TestClient_GetRepository_ErrorTaxonomy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		check      func(t *testing.T, err error)
	}{
		{
			name:       "unauthorized becomes auth error",
			statusCode: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				t.Helper()
				var authErr *github.AuthError
				require.ErrorAs(t, err, &authErr)
			},
		},
		{
			name:       "forbidden becomes rate limit error",
			statusCode: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				t.Helper()
				var rateErr *github.RateLimitError
				require.ErrorAs(t, err, &rateErr)
				assert.False(t, rateErr.Reset.IsZero())
			},
		},
		{
			name:       "too many requests becomes rate limit error",
			statusCode: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				t.Helper()
				var rateErr *github.RateLimitError
				require.ErrorAs(t, err, &rateErr)
			},
		},
		{
			name:       "server error stays plain service error",
			statusCode: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				t.Helper()
				var rateErr *github.RateLimitError
				assert.False(t, errors.As(err, &rateErr))
				var authErr *github.AuthError
				assert.False(t, errors.As(err, &authErr))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client := github.NewClient(server.URL)
			_, err := client.GetRepository(context.Background(), "owner/repo", "")

			require.Error(t, err)
			assert.True(t, github.IsServiceError(err), "HTTP failures belong to the remote-service category")
			tt.check(t, err)
		})
	}
}

func TestClient_GetRepository_DecodeFailureIsNotServiceError(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client := github.NewClient(server.URL)
	_, err := client.GetRepository(context.Background(), "owner/repo", "")

	require.Error(t, err)
	assert.False(t, github.IsServiceError(err), "decode failures must propagate, not be suppressed")
}

func TestClient_ListReleases(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/repo/releases", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[
			{"tag_name": "v2.0.0-beta.1", "prerelease": true},
			{"tag_name": "v1.2.0", "prerelease": false},
			{"tag_name": "v1.1.0", "prerelease": false}
		]`))
	}))
	defer server.Close()

	client := github.NewClient(server.URL)
	releases, err := client.ListReleases(context.Background(), "owner/repo")

	require.NoError(t, err)
	require.Len(t, releases, 3)
	assert.True(t, releases[0].Prerelease)
	assert.Equal(t, "v1.2.0", releases[1].TagName)
}

func TestClient_GetRateLimit(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rate_limit", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"resources": {"core": {"limit": 5000, "remaining": 4321, "reset": 1700000000}}}`))
	}))
	defer server.Close()

	client := github.NewClient(server.URL)
	limit, err := client.GetRateLimit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5000, limit.Limit)
	assert.Equal(t, 4321, limit.Remaining)
	assert.Equal(t, int64(1700000000), limit.ResetTime().Unix())
}

func TestCanUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		remaining int
		want      int
	}{
		{
			name:      "plenty of budget",
			remaining: 5000,
			want:      400,
		},
		{
			name:      "exactly the reserve",
			remaining: 1000,
			want:      0,
		},
		{
			name:      "reserve plus less than one addon",
			remaining: 1009,
			want:      0,
		},
		{
			name:      "reserve plus one addon",
			remaining: 1010,
			want:      1,
		},
		{
			name:      "exhausted",
			remaining: 0,
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			limit := &github.RateLimit{Limit: 5000, Remaining: tt.remaining}
			assert.Equal(t, tt.want, github.CanUpdate(limit))
		})
	}
}
