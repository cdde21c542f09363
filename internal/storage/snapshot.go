package storage

import (
	"fmt"
	"log/slog"

	"github.com/addonhub/addonhub/internal/addon"
)

// Store file names
const (
	addonsStore   = "addons"
	hubStore      = "hub"
	criticalStore = "critical"
)

// HubData is the hub-level bookkeeping persisted alongside the registry
type HubData struct {
	// Renamed maps old "owner/repo" slugs to their current ones
	Renamed map[string]string `json:"renamed_repositories,omitempty"`

	// Archived lists slugs known to be archived upstream
	Archived []string `json:"archived_repositories,omitempty"`

	// Ignored lists slugs the operator chose to hide
	Ignored []string `json:"ignored_repositories,omitempty"`
}

// CriticalAck is a persisted acknowledgement record for a critical add-on
type CriticalAck struct {
	Repository   string `json:"repository"`
	Reason       string `json:"reason,omitempty"`
	Link         string `json:"link,omitempty"`
	Acknowledged bool   `json:"acknowledged"`
}

// registrySnapshot is the on-disk shape of the add-on registry
type registrySnapshot struct {
	Addons   []*addon.Addon        `json:"addons"`
	Defaults []string              `json:"defaults,omitempty"`
	Removed  []*addon.RemovedAddon `json:"removed,omitempty"`
}

// Snapshot persists and restores the add-on registry and hub bookkeeping
type Snapshot struct {
	store *Store
}

// NewSnapshot creates a snapshot writer over the given store
func NewSnapshot(store *Store) *Snapshot {
	return &Snapshot{store: store}
}

// WriteRegistry persists the registry content
func (s *Snapshot) WriteRegistry(registry *addon.Registry) error {
	snap := registrySnapshot{
		Addons:   registry.ListAll(),
		Defaults: registry.DefaultIDs(),
		Removed:  registry.ListRemoved(),
	}

	if err := s.store.Save(addonsStore, &snap); err != nil {
		return err
	}
	slog.Debug("Saved registry snapshot", "addons", len(snap.Addons))
	return nil
}

// RestoreRegistry loads a persisted registry snapshot back into registry,
// reporting whether a snapshot existed
func (s *Snapshot) RestoreRegistry(registry *addon.Registry) (bool, error) {
	var snap registrySnapshot
	found, err := s.store.Load(addonsStore, &snap)
	if err != nil || !found {
		return found, err
	}

	defaults := make(map[string]struct{}, len(snap.Defaults))
	for _, id := range snap.Defaults {
		defaults[id] = struct{}{}
	}

	for _, a := range snap.Addons {
		if err := registry.Register(a); err != nil {
			return true, fmt.Errorf("failed to restore %s: %w", a.FullName, err)
		}
		if _, ok := defaults[a.ID]; ok {
			registry.MarkDefault(a)
		}
	}
	for _, rec := range snap.Removed {
		registry.UpdateRemoved(rec.FullName, rec)
	}

	slog.Info("Restored registry snapshot", "addons", len(snap.Addons))
	return true, nil
}

// WriteHubData persists the hub bookkeeping
func (s *Snapshot) WriteHubData(data *HubData) error {
	return s.store.Save(hubStore, data)
}

// ReadHubData loads the hub bookkeeping, returning an empty value when no
// store exists yet
func (s *Snapshot) ReadHubData() (*HubData, error) {
	data := &HubData{}
	if _, err := s.store.Load(hubStore, data); err != nil {
		return nil, err
	}
	if data.Renamed == nil {
		data.Renamed = make(map[string]string)
	}
	return data, nil
}

// WriteCritical persists the critical acknowledgement records
func (s *Snapshot) WriteCritical(records []CriticalAck) error {
	return s.store.Save(criticalStore, records)
}

// ReadCritical loads the critical acknowledgement records
func (s *Snapshot) ReadCritical() ([]CriticalAck, error) {
	var records []CriticalAck
	if _, err := s.store.Load(criticalStore, &records); err != nil {
		return nil, err
	}
	return records, nil
}
