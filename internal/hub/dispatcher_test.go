package hub_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/addonhub/addonhub/internal/addon"
	"github.com/addonhub/addonhub/internal/config"
	"github.com/addonhub/addonhub/internal/github"
	"github.com/addonhub/addonhub/internal/github/mocks"
	"github.com/addonhub/addonhub/internal/hub"
)

// newTestConfig returns a config with fast pacing suitable for tests
func newTestConfig(t *testing.T, concurrency int, cooldown string) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Categories: []string{string(addon.CategoryIntegration)},
		Sync: config.SyncConfig{
			Concurrency: concurrency,
			Cooldown:    cooldown,
		},
		Storage: config.StorageConfig{
			Path: t.TempDir(),
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestHub(t *testing.T, cfg *config.Config, ctrl *gomock.Controller) (*hub.Hub, *mocks.MockClient, *mocks.MockDataClient) {
	t.Helper()

	client := mocks.NewMockClient(ctrl)
	data := mocks.NewMockDataClient(ctrl)

	h, err := hub.New(cfg,
		hub.WithGitHubClient(client),
		hub.WithDataClient(data),
	)
	require.NoError(t, err)
	return h, client, data
}

func registerTestAddon(t *testing.T, h *hub.Hub, a *addon.Addon) {
	t.Helper()
	require.NoError(t, h.Registry().Register(a))
}

func TestHub_CommonUpdate(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h, client, _ := newTestHub(t, newTestConfig(t, 15, "1ms"), ctrl)
	registerTestAddon(t, h, &addon.Addon{ID: "1", FullName: "owner/repo", Category: addon.CategoryIntegration})

	client.EXPECT().
		GetRepository(gomock.Any(), "owner/repo", "").
		Return(&github.Repository{
			ID:              1,
			FullName:        "owner/repo",
			Description:     "fresh description",
			DefaultBranch:   "main",
			StargazersCount: 10,
			ETag:            `"v2"`,
		}, nil)

	err := h.CommonUpdate(context.Background(), "owner/repo")
	require.NoError(t, err)

	got := h.Registry().GetByFullName("owner/repo")
	require.NotNil(t, got)
	assert.Equal(t, "fresh description", got.Description)
	assert.Equal(t, 10, got.Stars)
	assert.Equal(t, `"v2"`, got.ETag)
	assert.False(t, got.LastFetched.IsZero())
	assert.Equal(t, 0, h.Gate().InFlight(), "slot must be released after the operation")
}

func TestHub_CommonUpdate_NotModifiedKeepsData(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h, client, _ := newTestHub(t, newTestConfig(t, 15, "1ms"), ctrl)
	registerTestAddon(t, h, &addon.Addon{
		ID:          "1",
		FullName:    "owner/repo",
		Category:    addon.CategoryIntegration,
		Description: "cached description",
		ETag:        `"v1"`,
	})

	client.EXPECT().
		GetRepository(gomock.Any(), "owner/repo", `"v1"`).
		Return(nil, github.ErrNotModified)

	err := h.CommonUpdate(context.Background(), "owner/repo")
	require.NoError(t, err)

	got := h.Registry().GetByFullName("owner/repo")
	require.NotNil(t, got)
	assert.Equal(t, "cached description", got.Description, "cached data survives a 304")
	assert.False(t, got.LastFetched.IsZero())
}

func TestHub_CommonUpdate_SuppressesRemoteServiceErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h, client, _ := newTestHub(t, newTestConfig(t, 15, "1ms"), ctrl)
	registerTestAddon(t, h, &addon.Addon{
		ID:          "1",
		FullName:    "owner/repo",
		Category:    addon.CategoryIntegration,
		Description: "cached description",
	})

	client.EXPECT().
		GetRepository(gomock.Any(), "owner/repo", "").
		Return(nil, &github.ServiceError{Operation: "get repository", Resource: "owner/repo", StatusCode: 502, Err: errors.New("bad gateway")})

	err := h.CommonUpdate(context.Background(), "owner/repo")
	assert.NoError(t, err, "remote-service failures are swallowed")

	got := h.Registry().GetByFullName("owner/repo")
	assert.Equal(t, "cached description", got.Description, "no result is recorded on failure")
	assert.False(t, h.Disabled(), "a plain service error does not disable the hub")
	assert.Equal(t, 0, h.Gate().InFlight())
}

func TestHub_CommonUpdate_PropagatesOtherErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h, _, _ := newTestHub(t, newTestConfig(t, 15, "1ms"), ctrl)

	err := h.CommonUpdate(context.Background(), "unknown/repo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown add-on")
	assert.Equal(t, 0, h.Gate().InFlight(), "slot must be released on failure too")
}

func TestHub_CommonUpdate_RateLimitDisablesHub(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h, client, _ := newTestHub(t, newTestConfig(t, 15, "1ms"), ctrl)
	registerTestAddon(t, h, &addon.Addon{ID: "1", FullName: "owner/repo", Category: addon.CategoryIntegration})

	client.EXPECT().
		GetRepository(gomock.Any(), "owner/repo", "").
		Return(nil, &github.RateLimitError{
			ServiceError: &github.ServiceError{Operation: "get repository", StatusCode: 403, Err: errors.New("rate limited")},
			Reset:        time.Now().Add(time.Hour),
		})

	err := h.CommonUpdate(context.Background(), "owner/repo")
	assert.NoError(t, err, "rate-limit failures are still remote-service failures")

	require.True(t, h.Disabled())
	assert.Equal(t, hub.DisabledRateLimit, h.Status().DisabledReason)

	// While disabled, updates fail fast with a propagating error
	err = h.CommonUpdate(context.Background(), "owner/repo")
	require.Error(t, err)
	assert.ErrorIs(t, err, hub.ErrDisabled)
}

func TestHub_CommonUpdate_AuthErrorDisablesHub(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h, client, _ := newTestHub(t, newTestConfig(t, 15, "1ms"), ctrl)
	registerTestAddon(t, h, &addon.Addon{ID: "1", FullName: "owner/repo", Category: addon.CategoryIntegration})

	client.EXPECT().
		GetRepository(gomock.Any(), "owner/repo", "").
		Return(nil, &github.AuthError{
			ServiceError: &github.ServiceError{Operation: "get repository", StatusCode: 401, Err: errors.New("bad credentials")},
		})

	err := h.CommonUpdate(context.Background(), "owner/repo")
	assert.NoError(t, err)
	require.True(t, h.Disabled())
	assert.Equal(t, hub.DisabledInvalidToken, h.Status().DisabledReason)
}

func TestHub_New_AppliesConfiguredGitHubTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	cfg := newTestConfig(t, 15, "1ms")
	cfg.GitHub.APIURL = srv.URL
	cfg.GitHub.Timeout = "50ms"

	h, err := hub.New(cfg)
	require.NoError(t, err)
	registerTestAddon(t, h, &addon.Addon{
		ID:          "1",
		FullName:    "owner/repo",
		Category:    addon.CategoryIntegration,
		Description: "cached description",
	})

	start := time.Now()
	err = h.CommonUpdate(context.Background(), "owner/repo")
	elapsed := time.Since(start)

	assert.NoError(t, err, "a timed-out call is a remote-service failure and is swallowed")
	assert.Less(t, elapsed, 2*time.Second, "the configured timeout applies, not the client default")

	got := h.Registry().GetByFullName("owner/repo")
	assert.Equal(t, "cached description", got.Description, "no result is recorded on timeout")
}

func TestHub_FullUpdate(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h, client, _ := newTestHub(t, newTestConfig(t, 15, "1ms"), ctrl)
	registerTestAddon(t, h, &addon.Addon{
		ID:               "1",
		FullName:         "owner/repo",
		Category:         addon.CategoryIntegration,
		Installed:        true,
		InstalledVersion: "v1.0.0",
	})

	client.EXPECT().
		GetRepository(gomock.Any(), "owner/repo", "").
		Return(&github.Repository{ID: 1, FullName: "owner/repo", Description: "d", DefaultBranch: "main"}, nil)
	client.EXPECT().
		ListReleases(gomock.Any(), "owner/repo").
		Return([]github.Release{
			{TagName: "v2.0.0-beta.1", Prerelease: true},
			{TagName: "v1.1.0", Prerelease: false},
			{TagName: "v1.0.0", Prerelease: false},
		}, nil)

	err := h.FullUpdate(context.Background(), "owner/repo")
	require.NoError(t, err)

	got := h.Registry().GetByFullName("owner/repo")
	require.NotNil(t, got)
	assert.Equal(t, "v1.1.0", got.AvailableVersion, "newest stable release wins over prereleases")
	assert.True(t, got.UpdateAvailable())
}

func TestHub_FullUpdate_NoReleasesFallsBackToBranch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h, client, _ := newTestHub(t, newTestConfig(t, 15, "1ms"), ctrl)
	registerTestAddon(t, h, &addon.Addon{ID: "1", FullName: "owner/repo", Category: addon.CategoryIntegration})

	client.EXPECT().
		GetRepository(gomock.Any(), "owner/repo", "").
		Return(&github.Repository{ID: 1, FullName: "owner/repo", Description: "d", DefaultBranch: "main"}, nil)
	client.EXPECT().
		ListReleases(gomock.Any(), "owner/repo").
		Return(nil, nil)

	err := h.FullUpdate(context.Background(), "owner/repo")
	require.NoError(t, err)

	got := h.Registry().GetByFullName("owner/repo")
	assert.Equal(t, "main", got.AvailableVersion)
}

func TestHub_RegisterAddon(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h, client, _ := newTestHub(t, newTestConfig(t, 15, "1ms"), ctrl)

	client.EXPECT().
		GetRepository(gomock.Any(), "owner/new-addon", "").
		Return(&github.Repository{
			ID:            777,
			FullName:      "owner/new-addon",
			Description:   "a shiny new add-on",
			DefaultBranch: "main",
		}, nil)

	err := h.RegisterAddon(context.Background(), "owner/new-addon", addon.CategoryIntegration)
	require.NoError(t, err)

	got := h.Registry().GetByFullName("owner/new-addon")
	require.NotNil(t, got)
	assert.Equal(t, "777", got.ID)
	assert.Equal(t, addon.CategoryIntegration, got.Category)
	assert.True(t, got.New)
}

func TestHub_RegisterAddon_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fullName string
		category addon.Category
		repo     *github.Repository
		errPart  string
	}{
		{
			name:     "blocked host platform repository",
			fullName: "home-assistant/core",
			category: addon.CategoryIntegration,
			errPart:  "host platform repository",
		},
		{
			name:     "unknown category",
			fullName: "owner/repo",
			category: addon.Category("bogus"),
			errPart:  "unknown category",
		},
		{
			name:     "archived repository",
			fullName: "owner/repo",
			category: addon.CategoryIntegration,
			repo:     &github.Repository{ID: 1, FullName: "owner/repo", Description: "d", Archived: true},
			errPart:  "archived",
		},
		{
			name:     "missing description",
			fullName: "owner/repo",
			category: addon.CategoryIntegration,
			repo:     &github.Repository{ID: 1, FullName: "owner/repo"},
			errPart:  "no description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			h, client, _ := newTestHub(t, newTestConfig(t, 15, "1ms"), ctrl)

			if tt.repo != nil {
				client.EXPECT().
					GetRepository(gomock.Any(), tt.fullName, "").
					Return(tt.repo, nil)
			}

			err := h.RegisterAddon(context.Background(), tt.fullName, tt.category)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
			assert.False(t, h.Registry().IsRegistered(tt.fullName))
		})
	}
}

func TestHub_RegisterAddon_AlreadyRegisteredShortCircuits(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h, _, _ := newTestHub(t, newTestConfig(t, 15, "1ms"), ctrl)
	registerTestAddon(t, h, &addon.Addon{ID: "1", FullName: "owner/repo", Category: addon.CategoryIntegration})

	// No GetRepository expectation: a registered addon must not hit the API
	err := h.RegisterAddon(context.Background(), "owner/repo", addon.CategoryIntegration)
	assert.NoError(t, err)
}

func TestHub_Guarded_CooldownElapsesBeforeRelease(t *testing.T) {
	t.Parallel()

	const cooldown = 60 * time.Millisecond

	ctrl := gomock.NewController(t)
	h, _, _ := newTestHub(t, newTestConfig(t, 1, "60ms"), ctrl)

	// The operation fails fast (unknown addon); the cool-down must still
	// elapse before the slot comes back.
	start := time.Now()
	err := h.CommonUpdate(context.Background(), "unknown/repo")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.GreaterOrEqual(t, elapsed, cooldown, "cool-down applies on failure too")
	assert.Equal(t, 0, h.Gate().InFlight())
}

func TestHub_Guarded_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const (
		capacity = 2
		workers  = 4
		cooldown = 50 * time.Millisecond
	)

	ctrl := gomock.NewController(t)
	h, client, _ := newTestHub(t, newTestConfig(t, capacity, "50ms"), ctrl)
	registerTestAddon(t, h, &addon.Addon{ID: "1", FullName: "owner/repo", Category: addon.CategoryIntegration})

	client.EXPECT().
		GetRepository(gomock.Any(), "owner/repo", gomock.Any()).
		Return(&github.Repository{ID: 1, FullName: "owner/repo", Description: "d", DefaultBranch: "main"}, nil).
		AnyTimes()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.CommonUpdate(context.Background(), "owner/repo"))
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	// Four operations through two slots with a 50ms cool-down each need at
	// least two full waves.
	assert.GreaterOrEqual(t, elapsed, 2*cooldown, "excess operations must wait for a free slot")
	assert.Equal(t, 0, h.Gate().InFlight(), "every slot must be released exactly once")
}

func TestHub_Guarded_TwentySimultaneousUpdates(t *testing.T) {
	t.Parallel()

	const (
		capacity = 15
		workers  = 20
		cooldown = 50 * time.Millisecond
	)

	ctrl := gomock.NewController(t)
	h, client, _ := newTestHub(t, newTestConfig(t, capacity, "50ms"), ctrl)
	registerTestAddon(t, h, &addon.Addon{ID: "1", FullName: "owner/repo", Category: addon.CategoryIntegration})

	var (
		mu   sync.Mutex
		peak int
	)
	client.EXPECT().
		GetRepository(gomock.Any(), "owner/repo", gomock.Any()).
		DoAndReturn(func(context.Context, string, string) (*github.Repository, error) {
			mu.Lock()
			if held := h.Gate().InFlight(); held > peak {
				peak = held
			}
			mu.Unlock()
			return &github.Repository{ID: 1, FullName: "owner/repo", Description: "d", DefaultBranch: "main"}, nil
		}).
		AnyTimes()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.CommonUpdate(context.Background(), "owner/repo"))
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	assert.LessOrEqual(t, peak, capacity, "no more than the gate capacity may be active at once")
	assert.GreaterOrEqual(t, elapsed, 2*cooldown, "twenty updates through fifteen slots take two waves")
	assert.Equal(t, 0, h.Gate().InFlight())
}
