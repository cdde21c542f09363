package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/addonhub/addonhub/internal/addon"
	"github.com/addonhub/addonhub/internal/events"
	"github.com/addonhub/addonhub/internal/github"
	"github.com/addonhub/addonhub/internal/telemetry"
)

// Operation names used in logs and metrics
const (
	opCommonUpdate = "common_update"
	opFullUpdate   = "full_update"
	opRegister     = "register"
)

// CommonUpdate refreshes an add-on's repository metadata through the gate
func (h *Hub) CommonUpdate(ctx context.Context, fullName string) error {
	return h.guarded(ctx, opCommonUpdate, func(ctx context.Context) error {
		return h.commonUpdate(ctx, fullName)
	})
}

// FullUpdate refreshes an add-on's metadata and release information through
// the gate
func (h *Hub) FullUpdate(ctx context.Context, fullName string) error {
	return h.guarded(ctx, opFullUpdate, func(ctx context.Context) error {
		return h.fullUpdate(ctx, fullName)
	})
}

// RegisterAddon fetches, validates and registers a new add-on through the gate
func (h *Hub) RegisterAddon(ctx context.Context, fullName string, category addon.Category) error {
	return h.guarded(ctx, opRegister, func(ctx context.Context) error {
		return h.registerAddon(ctx, fullName, category, false)
	})
}

// guarded runs fn behind the admission gate:
//
//  1. acquire a gate slot, suspending while the gate is at capacity;
//  2. run the wrapped operation;
//  3. swallow remote-service errors, no retry, no result recorded;
//  4. sleep the fixed cool-down before handing the slot back, success or
//     not, so the request rate stays under GitHub's limits;
//  5. release the slot.
//
// Every other error kind propagates. The cool-down is deliberately not
// cancellable: once the remote call has been made the pacing pause must
// elapse regardless of what the caller's context does.
func (h *Hub) guarded(ctx context.Context, operation string, fn func(context.Context) error) error {
	if err := h.gate.Acquire(ctx); err != nil {
		return err
	}
	defer h.gate.Release()

	start := time.Now()
	err := fn(ctx)
	time.Sleep(h.cooldown)

	outcome := telemetry.OutcomeSuccess
	defer func() {
		h.metrics.RecordUpdate(ctx, operation, outcome, time.Since(start).Seconds())
	}()

	if err != nil {
		if github.IsServiceError(err) {
			outcome = telemetry.OutcomeSuppressed
			slog.Debug("Suppressed remote-service error", "operation", operation, "error", err)
			return nil
		}
		outcome = telemetry.OutcomeError
		return err
	}
	return nil
}

// commonUpdate refreshes repository metadata for a registered add-on
func (h *Hub) commonUpdate(ctx context.Context, fullName string) error {
	if h.Disabled() {
		return fmt.Errorf("%w: skipping update of %s", ErrDisabled, fullName)
	}

	a := h.registry.GetByFullName(fullName)
	if a == nil {
		return fmt.Errorf("unknown add-on: %s", fullName)
	}

	repo, err := h.github.GetRepository(ctx, a.FullName, a.ETag)
	if errors.Is(err, github.ErrNotModified) {
		slog.Debug("Add-on unchanged", "addon", a.FullName)
		clone := a.Clone()
		clone.LastFetched = time.Now()
		return h.registry.Replace(clone)
	}
	if err != nil {
		h.disableOnFatal(err)
		return err
	}

	clone := a.Clone()
	h.applyRepository(clone, repo)
	if err := h.registry.Replace(clone); err != nil {
		return err
	}
	h.bus.Publish(events.TypeRepository, map[string]any{
		"action":     "update",
		"repository": clone.FullName,
	})
	return nil
}

// fullUpdate refreshes metadata plus release information
func (h *Hub) fullUpdate(ctx context.Context, fullName string) error {
	if err := h.commonUpdate(ctx, fullName); err != nil {
		return err
	}

	a := h.registry.GetByFullName(fullName)
	if a == nil {
		// Unregistered by a concurrent removal pass
		return nil
	}

	releases, err := h.github.ListReleases(ctx, a.FullName)
	if err != nil {
		h.disableOnFatal(err)
		return err
	}

	clone := a.Clone()
	if version := latestVersion(releases); version != "" {
		clone.AvailableVersion = version
	} else {
		clone.AvailableVersion = clone.DefaultBranch
	}
	if err := h.registry.Replace(clone); err != nil {
		return err
	}

	if clone.UpdateAvailable() {
		slog.Info("Update available",
			"addon", clone.FullName,
			"installed", clone.InstalledVersion,
			"available", clone.AvailableVersion)
		h.bus.Publish(events.TypeRepository, map[string]any{
			"action":     "update-available",
			"repository": clone.FullName,
		})
	}
	return nil
}

// registerAddon fetches, validates and registers a new add-on
func (h *Hub) registerAddon(ctx context.Context, fullName string, category addon.Category, markDefault bool) error {
	if h.Disabled() {
		return fmt.Errorf("%w: skipping registration of %s", ErrDisabled, fullName)
	}

	fullName = h.renamed(fullName)

	if h.skipped(fullName) {
		slog.Debug("Skipping registration", "repository", fullName)
		return nil
	}
	for _, blocked := range blockedRepositories {
		if fullName == blocked {
			return fmt.Errorf("%s is a host platform repository, not an add-on", fullName)
		}
	}
	if !category.Valid() {
		return fmt.Errorf("unknown category %q for %s", category, fullName)
	}
	if h.registry.IsRegistered(fullName) {
		return nil
	}

	repo, err := h.github.GetRepository(ctx, fullName, "")
	if err != nil {
		h.disableOnFatal(err)
		return err
	}
	if repo.Archived {
		h.Skip(fullName)
		return fmt.Errorf("repository %s is archived", fullName)
	}
	if repo.Description == "" {
		h.Skip(fullName)
		return fmt.Errorf("repository %s has no description", fullName)
	}

	a := &addon.Addon{
		ID:       fmt.Sprintf("%d", repo.ID),
		FullName: repo.FullName,
		Category: category,
		New:      true,
	}
	h.applyRepository(a, repo)

	if err := h.registry.Register(a); err != nil {
		return err
	}
	if markDefault {
		h.registry.MarkDefault(a)
	}

	slog.Info("Registration completed", "addon", a.String())
	h.bus.Publish(events.TypeRepository, map[string]any{
		"action":     "registration",
		"repository": a.FullName,
		"id":         a.ID,
	})
	return nil
}

// applyRepository copies fetched repository metadata onto the add-on
func (*Hub) applyRepository(a *addon.Addon, repo *github.Repository) {
	a.FullName = repo.FullName
	a.Description = repo.Description
	a.Stars = repo.StargazersCount
	a.Topics = repo.Topics
	a.DefaultBranch = repo.DefaultBranch
	a.Archived = repo.Archived
	a.ETag = repo.ETag
	a.LastUpdated = repo.PushedAt
	a.LastFetched = time.Now()
}

// disableOnFatal disables the hub when a failure indicates that further
// calls cannot succeed. The error itself still flows back to the guarded
// wrapper where the remote-service category is suppressed.
func (h *Hub) disableOnFatal(err error) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		h.Disable(DisabledRateLimit)
		return
	}
	var authErr *github.AuthError
	if errors.As(err, &authErr) {
		h.Disable(DisabledInvalidToken)
	}
}

// latestVersion returns the newest non-prerelease tag, or empty when the
// repository publishes no stable releases
func latestVersion(releases []github.Release) string {
	for _, r := range releases {
		if !r.Prerelease {
			return r.TagName
		}
	}
	return ""
}
