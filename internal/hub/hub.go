// Package hub wires the add-on registry, the GitHub clients, the admission
// gate and the task queue into the orchestrator that keeps the catalog fresh.
package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/addonhub/addonhub/internal/addon"
	"github.com/addonhub/addonhub/internal/config"
	"github.com/addonhub/addonhub/internal/download"
	"github.com/addonhub/addonhub/internal/events"
	"github.com/addonhub/addonhub/internal/gate"
	"github.com/addonhub/addonhub/internal/github"
	"github.com/addonhub/addonhub/internal/httpclient"
	"github.com/addonhub/addonhub/internal/queue"
	"github.com/addonhub/addonhub/internal/storage"
	"github.com/addonhub/addonhub/internal/telemetry"
)

// DisabledReason explains why the hub stopped issuing GitHub calls
type DisabledReason string

const (
	// DisabledRateLimit means the GitHub rate limit is exhausted
	DisabledRateLimit DisabledReason = "rate-limit"

	// DisabledInvalidToken means the configured token was rejected
	DisabledInvalidToken DisabledReason = "invalid-token"

	// DisabledLoadFailure means persisted state could not be loaded
	DisabledLoadFailure DisabledReason = "load-failure"
)

// ErrDisabled is returned by update operations while the hub is disabled.
// It is not a remote-service error and propagates to the caller.
var ErrDisabled = errors.New("hub: disabled")

// blockedRepositories can never be registered as add-ons; they are host
// platform repositories, not add-on repositories.
var blockedRepositories = []string{
	"home-assistant/core",
	"home-assistant/addons",
}

// Status is the externally visible hub state
type Status struct {
	Startup        bool           `json:"startup"`
	BackgroundTask bool           `json:"background_task"`
	Disabled       bool           `json:"disabled"`
	DisabledReason DisabledReason `json:"disabled_reason,omitempty"`
}

// Hub is the orchestrator owning all update traffic to GitHub
type Hub struct {
	cfg      *config.Config
	registry *addon.Registry
	github   github.Client
	data     github.DataClient
	download download.Client
	gate     *gate.Gate
	queue    *queue.Manager
	bus      *events.Bus
	snapshot *storage.Snapshot
	metrics  *telemetry.HubMetrics

	cooldown time.Duration

	mu      sync.RWMutex
	status  Status
	skip    map[string]struct{}
	hubData *storage.HubData
}

// Option configures the hub
type Option func(*Hub)

// WithGitHubClient overrides the GitHub API client
func WithGitHubClient(c github.Client) Option {
	return func(h *Hub) {
		h.github = c
	}
}

// WithDataClient overrides the curated data client
func WithDataClient(c github.DataClient) Option {
	return func(h *Hub) {
		h.data = c
	}
}

// WithDownloadClient overrides the content download client
func WithDownloadClient(c download.Client) Option {
	return func(h *Hub) {
		h.download = c
	}
}

// WithMetrics sets the hub metrics
func WithMetrics(m *telemetry.HubMetrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithEventBus overrides the event bus
func WithEventBus(b *events.Bus) Option {
	return func(h *Hub) {
		h.bus = b
	}
}

// New creates a hub from configuration
func New(cfg *config.Config, opts ...Option) (*Hub, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	cooldown, err := cfg.Sync.GetCooldown()
	if err != nil {
		return nil, err
	}

	admission, err := gate.New(cfg.Sync.GetConcurrency())
	if err != nil {
		return nil, err
	}

	token, err := cfg.GitHub.GetToken()
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.GitHub.GetTimeout()
	if err != nil {
		return nil, err
	}
	httpClient := httpclient.NewDefaultClient(timeout)

	h := &Hub{
		cfg:      cfg,
		registry: addon.NewRegistry(),
		github: github.NewClient(cfg.GitHub.APIURL,
			github.WithToken(token),
			github.WithHTTPClient(httpClient)),
		data: github.NewDataClient(cfg.GitHub.DataURL,
			github.WithDataHTTPClient(httpClient)),
		download: download.NewClient(),
		gate:     admission,
		queue:    queue.NewManager(),
		bus:      events.NewBus(),
		snapshot: storage.NewSnapshot(storage.NewStore(cfg.Storage.GetPath())),
		cooldown: cooldown,
		status:   Status{Startup: true},
		skip:     make(map[string]struct{}),
		hubData:  &storage.HubData{Renamed: make(map[string]string)},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// Registry returns the add-on registry
func (h *Hub) Registry() *addon.Registry {
	return h.registry
}

// Gate returns the admission gate
func (h *Hub) Gate() *gate.Gate {
	return h.gate
}

// Queue returns the pending task queue
func (h *Hub) Queue() *queue.Manager {
	return h.queue
}

// Bus returns the event bus
func (h *Hub) Bus() *events.Bus {
	return h.bus
}

// Status returns a copy of the current hub status
func (h *Hub) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Disabled reports whether the hub is currently disabled
func (h *Hub) Disabled() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status.Disabled
}

// Disable stops all further GitHub traffic until Enable is called
func (h *Hub) Disable(reason DisabledReason) {
	h.mu.Lock()
	alreadyDisabled := h.status.Disabled
	h.status.Disabled = true
	h.status.DisabledReason = reason
	h.mu.Unlock()

	if !alreadyDisabled {
		slog.Error("Hub disabled", "reason", string(reason))
		h.bus.Publish(events.TypeStatus, map[string]any{"disabled": true, "reason": string(reason)})
	}
}

// Enable lifts a previous Disable
func (h *Hub) Enable() {
	h.mu.Lock()
	wasDisabled := h.status.Disabled
	h.status.Disabled = false
	h.status.DisabledReason = ""
	h.mu.Unlock()

	if wasDisabled {
		slog.Info("Hub enabled")
		h.bus.Publish(events.TypeStatus, map[string]any{"disabled": false})
	}
}

// Categories returns the configured categories
func (h *Hub) Categories() []addon.Category {
	result := make([]addon.Category, 0, len(h.cfg.Categories))
	for _, c := range h.cfg.Categories {
		result = append(result, addon.Category(c))
	}
	return result
}

func (h *Hub) hasCategory(c addon.Category) bool {
	return slices.Contains(h.cfg.Categories, string(c))
}

// Skip marks a repository to be excluded from future registrations
func (h *Hub) Skip(fullName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.skip[fullName] = struct{}{}
}

// skipped reports whether a repository is excluded from registration,
// either for this session or through the persisted operator ignore list
func (h *Hub) skipped(fullName string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.skip[fullName]; ok {
		return true
	}
	return slices.Contains(h.hubData.Ignored, fullName)
}

// renamed resolves a slug through the persisted rename map
func (h *Hub) renamed(fullName string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if current, ok := h.hubData.Renamed[fullName]; ok {
		return current
	}
	return fullName
}

func (h *Hub) archived(fullName string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Contains(h.hubData.Archived, fullName)
}

func (h *Hub) setBackgroundTask(active bool) {
	h.mu.Lock()
	h.status.BackgroundTask = active
	h.mu.Unlock()
	h.bus.Publish(events.TypeStatus, map[string]any{"background_task": active})
}

// WriteSnapshot persists the registry and hub bookkeeping
func (h *Hub) WriteSnapshot() error {
	h.mu.RLock()
	data := *h.hubData
	h.mu.RUnlock()

	if err := h.snapshot.WriteRegistry(h.registry); err != nil {
		return err
	}
	return h.snapshot.WriteHubData(&data)
}
