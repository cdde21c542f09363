package addon

import (
	"fmt"
	"strings"
	"sync"
)

// Registry is the in-memory index of all known add-ons.
// All methods are safe for concurrent use; update operations run in
// parallel behind the admission gate.
type Registry struct {
	mu sync.RWMutex

	byID       map[string]*Addon
	byFullName map[string]*Addon
	defaults   map[string]struct{}
	removed    map[string]*RemovedAddon
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[string]*Addon),
		byFullName: make(map[string]*Addon),
		defaults:   make(map[string]struct{}),
		removed:    make(map[string]*RemovedAddon),
	}
}

// Register inserts an add-on into the registry.
// Re-registering a known repository ID under a new full name renames the
// existing entry instead of creating a duplicate; GitHub repository IDs are
// stable across renames while slugs are not.
func (r *Registry) Register(a *Addon) error {
	if a == nil {
		return fmt.Errorf("addon cannot be nil")
	}
	if a.ID == "" || a.ID == "0" {
		return fmt.Errorf("addon %s has no repository id", a.FullName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[a.ID]; ok {
		if existing.FullNameLower() == a.FullNameLower() {
			return nil
		}
		// Renamed upstream: swap in a clone under the new slug so readers
		// holding the old pointer keep a consistent snapshot
		renamed := existing.Clone()
		renamed.FullName = a.FullName
		renamed.New = false
		delete(r.byFullName, existing.FullNameLower())
		r.byID[renamed.ID] = renamed
		r.byFullName[renamed.FullNameLower()] = renamed
		return nil
	}

	r.byID[a.ID] = a
	r.byFullName[a.FullNameLower()] = a
	return nil
}

// Replace swaps the stored entry for a's repository ID with a. Combined
// with Addon.Clone this gives copy-on-write updates: readers holding the
// previous pointer keep a consistent snapshot.
func (r *Registry) Replace(a *Addon) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("addon cannot be nil or without id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[a.ID]
	if !ok {
		return fmt.Errorf("addon %s is not registered", a.FullName)
	}

	delete(r.byFullName, existing.FullNameLower())
	r.byID[a.ID] = a
	r.byFullName[a.FullNameLower()] = a
	return nil
}

// Unregister removes an add-on from all indexes
func (r *Registry) Unregister(a *Addon) {
	if a == nil || a.ID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID]; !ok {
		return
	}

	delete(r.defaults, a.ID)
	delete(r.byID, a.ID)
	delete(r.byFullName, a.FullNameLower())
}

// MarkDefault marks a registered add-on as part of the curated default catalog
func (r *Registry) MarkDefault(a *Addon) {
	if a == nil || a.ID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID]; !ok {
		return
	}
	r.defaults[a.ID] = struct{}{}
}

// IsDefault reports whether the given repository ID is in the default catalog
func (r *Registry) IsDefault(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.defaults[id]
	return ok
}

// DefaultIDs returns the repository IDs of the curated default catalog
func (r *Registry) DefaultIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.defaults))
	for id := range r.defaults {
		result = append(result, id)
	}
	return result
}

// IsRegistered reports whether an add-on with the given full name exists
func (r *Registry) IsRegistered(fullName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byFullName[strings.ToLower(fullName)]
	return ok
}

// GetByID returns the add-on with the given repository ID, or nil
func (r *Registry) GetByID(id string) *Addon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byID[id]
}

// GetByFullName returns the add-on with the given full name, or nil.
// Lookup is case-insensitive; GitHub slugs are not case-sensitive either.
func (r *Registry) GetByFullName(fullName string) *Addon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byFullName[strings.ToLower(fullName)]
}

// ListAll returns all registered add-ons
func (r *Registry) ListAll() []*Addon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Addon, 0, len(r.byID))
	for _, a := range r.byID {
		result = append(result, a)
	}
	return result
}

// ListByCategory returns all registered add-ons in the given category
func (r *Registry) ListByCategory(category Category) []*Addon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Addon
	for _, a := range r.byID {
		if a.Category == category {
			result = append(result, a)
		}
	}
	return result
}

// ListDownloaded returns all add-ons whose content has been downloaded
func (r *Registry) ListDownloaded() []*Addon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Addon
	for _, a := range r.byID {
		if a.Installed {
			result = append(result, a)
		}
	}
	return result
}

// Count returns the number of registered add-ons
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

// Removed returns the removal record for the given full name, or nil.
// Records are treated as immutable; UpdateRemoved swaps in a fresh copy.
func (r *Registry) Removed(fullName string) *RemovedAddon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.removed[fullName]
}

// UpdateRemoved merges updates into the removal record for the given full
// name, creating the record if none exists yet. The stored record is
// replaced by a copy so readers holding the previous pointer keep a
// consistent snapshot.
func (r *Registry) UpdateRemoved(fullName string, updates *RemovedAddon) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := &RemovedAddon{FullName: fullName}
	if existing, ok := r.removed[fullName]; ok {
		clone := *existing
		rec = &clone
	}
	rec.Update(updates)
	r.removed[fullName] = rec
}

// IsRemoved reports whether the given full name has a removal record
func (r *Registry) IsRemoved(fullName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.removed[fullName]
	return ok
}

// ListRemoved returns all removal records
func (r *Registry) ListRemoved() []*RemovedAddon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*RemovedAddon, 0, len(r.removed))
	for _, rec := range r.removed {
		result = append(result, rec)
	}
	return result
}
