package hub

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/addonhub/addonhub/internal/addon"
	"github.com/addonhub/addonhub/internal/download"
	"github.com/addonhub/addonhub/internal/events"
	"github.com/addonhub/addonhub/internal/github"
	"github.com/addonhub/addonhub/internal/storage"
)

// criticalAck builds the persisted acknowledgement record for one curated
// critical entry
func criticalAck(rec github.CriticalRecord, acknowledged bool) storage.CriticalAck {
	return storage.CriticalAck{
		Repository:   rec.Repository,
		Reason:       rec.Reason,
		Link:         rec.Link,
		Acknowledged: acknowledged,
	}
}

// Startup restores persisted state and performs the initial catalog load.
// The hub stays in startup state until this returns.
func (h *Hub) Startup(ctx context.Context) error {
	slog.Info("Starting hub", "name", h.cfg.GetHubName(), "categories", h.cfg.Categories)
	h.bus.Publish(events.TypeStatus, map[string]any{"startup": true})

	if _, err := h.snapshot.RestoreRegistry(h.registry); err != nil {
		h.Disable(DisabledLoadFailure)
		return fmt.Errorf("failed to restore registry: %w", err)
	}

	hubData, err := h.snapshot.ReadHubData()
	if err != nil {
		h.Disable(DisabledLoadFailure)
		return fmt.Errorf("failed to read hub data: %w", err)
	}
	h.mu.Lock()
	h.hubData = hubData
	h.mu.Unlock()

	h.alertUnacknowledgedCritical()

	if err := h.LoadDefaultCatalogs(ctx); err != nil {
		slog.Warn("Initial catalog load incomplete", "error", err)
	}
	h.HandleRemoved(ctx)

	if _, err := h.queue.Process(ctx); err != nil {
		slog.Warn("Startup queue finished with failures", "error", err)
	}

	if err := h.WriteSnapshot(); err != nil {
		slog.Error("Failed to write snapshot", "error", err)
	}

	h.mu.Lock()
	h.status.Startup = false
	h.mu.Unlock()
	h.bus.Publish(events.TypeStatus, map[string]any{"startup": false})
	h.recordRegistryMetrics(ctx)

	slog.Info("Hub startup complete", "addons", h.registry.Count())
	return nil
}

// rateLimitCheckInterval is how often a rate-limit disabled hub probes for
// recovered budget
const rateLimitCheckInterval = 5 * time.Minute

// RunScheduler runs the recurring background tasks until ctx is cancelled
func (h *Hub) RunScheduler(ctx context.Context) error {
	downloadedInterval, err := h.cfg.Sync.GetDownloadedInterval()
	if err != nil {
		return err
	}
	catalogInterval, err := h.cfg.Sync.GetCatalogInterval()
	if err != nil {
		return err
	}

	slog.Info("Starting scheduler",
		"downloaded_interval", downloadedInterval.String(),
		"catalog_interval", catalogInterval.String())

	downloadedTicker := time.NewTicker(downloadedInterval)
	defer downloadedTicker.Stop()
	catalogTicker := time.NewTicker(catalogInterval)
	defer catalogTicker.Stop()
	rateLimitTicker := time.NewTicker(rateLimitCheckInterval)
	defer rateLimitTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return ctx.Err()
		case <-downloadedTicker.C:
			h.RefreshDownloaded(ctx)
		case <-catalogTicker.C:
			h.RefreshCatalog(ctx)
		case <-rateLimitTicker.C:
			h.CheckRateLimit(ctx)
		}
	}
}

// RefreshDownloaded refreshes every downloaded add-on in the configured
// categories and reconciles the critical list
func (h *Hub) RefreshDownloaded(ctx context.Context) {
	slog.Debug("Starting recurring background task for downloaded add-ons")
	h.setBackgroundTask(true)
	defer h.setBackgroundTask(false)

	for _, a := range h.registry.ListDownloaded() {
		if !h.hasCategory(a.Category) {
			continue
		}
		fullName := a.FullName
		h.queue.Add(func(ctx context.Context) error {
			return h.FullUpdate(ctx, fullName)
		})
	}

	h.HandleCritical(ctx)

	if _, err := h.queue.Process(ctx); err != nil {
		slog.Warn("Downloaded refresh finished with failures", "error", err)
	}
	if err := h.WriteSnapshot(); err != nil {
		slog.Error("Failed to write snapshot", "error", err)
	}
	h.recordRegistryMetrics(ctx)
	slog.Debug("Recurring background task for downloaded add-ons done")
}

// RefreshCatalog refreshes every registered add-on and reloads the curated
// default catalogs
func (h *Hub) RefreshCatalog(ctx context.Context) {
	slog.Debug("Starting recurring background task for all add-ons")
	h.setBackgroundTask(true)
	defer h.setBackgroundTask(false)

	for _, a := range h.registry.ListAll() {
		if !h.hasCategory(a.Category) {
			continue
		}
		fullName := a.FullName
		h.queue.Add(func(ctx context.Context) error {
			return h.CommonUpdate(ctx, fullName)
		})
	}

	if err := h.LoadDefaultCatalogs(ctx); err != nil {
		slog.Warn("Catalog reload incomplete", "error", err)
	}
	h.HandleRemoved(ctx)

	if _, err := h.queue.Process(ctx); err != nil {
		slog.Warn("Catalog refresh finished with failures", "error", err)
	}
	if err := h.WriteSnapshot(); err != nil {
		slog.Error("Failed to write snapshot", "error", err)
	}
	h.recordRegistryMetrics(ctx)
	h.bus.Publish(events.TypeReload, map[string]any{"force": true})
	slog.Debug("Recurring background task for all add-ons done")
}

// LoadDefaultCatalogs pulls the curated removed list and the default add-on
// list of every configured category, enqueueing registrations for unknown
// entries
func (h *Hub) LoadDefaultCatalogs(ctx context.Context) error {
	slog.Info("Loading curated catalogs")

	removed, err := h.data.RemovedList(ctx)
	if err != nil {
		return err
	}
	for _, rec := range removed {
		h.registry.UpdateRemoved(rec.Repository, &addon.RemovedAddon{
			Reason:      rec.Reason,
			Link:        rec.Link,
			RemovalType: addon.RemovalType(rec.RemovalType),
		})
	}

	for _, category := range h.Categories() {
		if err := h.loadCategory(ctx, category); err != nil {
			slog.Warn("Failed to load category list", "category", string(category), "error", err)
		}
	}
	return nil
}

// loadCategory enqueues registration of every unknown curated add-on in a category
func (h *Hub) loadCategory(ctx context.Context, category addon.Category) error {
	slugs, err := h.data.CategoryList(ctx, category)
	if err != nil {
		return err
	}

	for _, slug := range slugs {
		slug = h.renamed(slug)
		if h.registry.IsRemoved(slug) || h.archived(slug) {
			continue
		}
		if existing := h.registry.GetByFullName(slug); existing != nil {
			h.registry.MarkDefault(existing)
			continue
		}
		h.queue.Add(func(ctx context.Context) error {
			return h.guarded(ctx, opRegister, func(ctx context.Context) error {
				return h.registerAddon(ctx, slug, category, true)
			})
		})
	}
	return nil
}

// HandleRemoved reconciles removal records against the registry: installed
// add-ons are kept with a warning, everything else is unregistered
func (h *Hub) HandleRemoved(_ context.Context) {
	for _, removed := range h.registry.ListRemoved() {
		a := h.registry.GetByFullName(removed.FullName)
		if a == nil {
			continue
		}
		if a.Installed && removed.RemovalType != addon.RemovalCritical {
			slog.Warn("Downloaded add-on has been removed from the catalog, consider removing it",
				"addon", a.FullName,
				"removal_type", string(removed.RemovalType),
				"reason", removed.Reason)
			continue
		}
		h.registry.Unregister(a)
		h.bus.Publish(events.TypeRepository, map[string]any{
			"action":     "removed",
			"repository": a.FullName,
		})
	}
}

// HandleCritical pulls the curated critical list and removes affected
// installed add-ons immediately, persisting acknowledgement records
func (h *Hub) HandleCritical(ctx context.Context) {
	critical, err := h.data.CriticalList(ctx)
	if err != nil {
		if github.IsServiceError(err) {
			slog.Debug("Critical list unavailable", "error", err)
			return
		}
		slog.Error("Failed to fetch critical list", "error", err)
		return
	}
	if len(critical) == 0 {
		slog.Debug("No critical add-ons")
		return
	}

	stored, err := h.snapshot.ReadCritical()
	if err != nil {
		slog.Error("Failed to read critical acknowledgements", "error", err)
		return
	}
	known := make(map[string]bool, len(stored))
	for _, ack := range stored {
		known[ack.Repository] = true
	}

	records := stored
	for _, rec := range critical {
		h.registry.UpdateRemoved(rec.Repository, &addon.RemovedAddon{
			RemovalType: addon.RemovalCritical,
		})

		if known[rec.Repository] {
			continue
		}

		acknowledged := true
		if a := h.registry.GetByFullName(rec.Repository); a != nil && a.Installed {
			slog.Error("Removing add-on, it is marked as critical",
				"addon", a.FullName, "reason", rec.Reason)
			acknowledged = false
			h.registry.Unregister(a)
			h.bus.Publish(events.TypeRepository, map[string]any{
				"action":     "critical-removed",
				"repository": a.FullName,
			})
		}
		records = append(records, criticalAck(rec, acknowledged))
	}

	if err := h.snapshot.WriteCritical(records); err != nil {
		slog.Error("Failed to write critical acknowledgements", "error", err)
	}
}

// CheckRateLimit re-enables a rate-limit disabled hub once budget is available
func (h *Hub) CheckRateLimit(ctx context.Context) {
	if !h.Disabled() || h.Status().DisabledReason != DisabledRateLimit {
		return
	}

	limit, err := h.github.GetRateLimit(ctx)
	if err != nil {
		slog.Debug("Rate limit check failed", "error", err)
		return
	}
	if can := github.CanUpdate(limit); can > 0 {
		slog.Info("Rate limit recovered", "budget", can)
		h.Enable()
	}
}

// Install downloads an add-on's content at its available version and marks
// it installed. The clone is not an API call and does not consume a gate slot.
func (h *Hub) Install(ctx context.Context, fullName string) error {
	if h.Disabled() {
		return fmt.Errorf("%w: skipping install of %s", ErrDisabled, fullName)
	}

	a := h.registry.GetByFullName(fullName)
	if a == nil {
		return fmt.Errorf("unknown add-on: %s", fullName)
	}

	version := a.AvailableVersion
	cfg := &download.FetchConfig{
		URL: fmt.Sprintf("https://github.com/%s", a.FullName),
	}
	if version != "" && version != a.DefaultBranch {
		cfg.Tag = version
	} else {
		cfg.Branch = a.DefaultBranch
		version = a.DefaultBranch
	}

	files, err := h.download.Fetch(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", a.FullName, err)
	}

	contentDir := filepath.Join(h.cfg.Storage.GetPath(), "content", a.FullNameLower())
	for name, content := range files {
		target := filepath.Join(contentDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
			return fmt.Errorf("failed to create content directory: %w", err)
		}
		if err := os.WriteFile(target, content, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	clone := a.Clone()
	clone.Installed = true
	clone.InstalledVersion = version
	clone.New = false
	if err := h.registry.Replace(clone); err != nil {
		return err
	}

	slog.Info("Installed add-on", "addon", clone.FullName, "version", version, "files", len(files))
	h.bus.Publish(events.TypeRepository, map[string]any{
		"action":     "installed",
		"repository": clone.FullName,
		"version":    version,
	})
	return h.WriteSnapshot()
}

// alertUnacknowledgedCritical logs loudly when persisted critical records
// have not been acknowledged yet
func (h *Hub) alertUnacknowledgedCritical() {
	stored, err := h.snapshot.ReadCritical()
	if err != nil {
		slog.Error("Failed to read critical acknowledgements", "error", err)
		return
	}
	for _, ack := range stored {
		if !ack.Acknowledged {
			slog.Error("URGENT: unacknowledged critical add-on", "repository", ack.Repository)
			h.bus.Publish(events.TypeStatus, map[string]any{"critical": ack.Repository})
		}
	}
}

func (h *Hub) recordRegistryMetrics(ctx context.Context) {
	if h.metrics == nil {
		return
	}
	for _, category := range h.Categories() {
		h.metrics.RecordAddonsTotal(ctx, string(category),
			int64(len(h.registry.ListByCategory(category))))
	}
}
