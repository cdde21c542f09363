// Package addon defines the add-on data model and the in-memory add-on registry.
package addon

import (
	"fmt"
	"strings"
	"time"
)

// Category classifies what kind of add-on a repository contains
type Category string

const (
	// CategoryIntegration is a backend integration add-on
	CategoryIntegration Category = "integration"

	// CategoryPlugin is a frontend plugin add-on
	CategoryPlugin Category = "plugin"

	// CategoryTheme is a theme add-on
	CategoryTheme Category = "theme"

	// CategoryTemplate is a template add-on
	CategoryTemplate Category = "template"

	// CategoryScript is a script add-on
	CategoryScript Category = "script"
)

// Categories lists all known categories
func Categories() []Category {
	return []Category{
		CategoryIntegration,
		CategoryPlugin,
		CategoryTheme,
		CategoryTemplate,
		CategoryScript,
	}
}

// Valid reports whether the category is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryIntegration, CategoryPlugin, CategoryTheme, CategoryTemplate, CategoryScript:
		return true
	}
	return false
}

// RemovalType classifies why an add-on was removed from the curated catalog
type RemovalType string

const (
	// RemovalArchived means the upstream repository was archived
	RemovalArchived RemovalType = "archived"

	// RemovalNotCompliant means the repository no longer meets catalog requirements
	RemovalNotCompliant RemovalType = "not_compliant"

	// RemovalCritical means the repository is harmful and must be removed immediately
	RemovalCritical RemovalType = "critical"

	// RemovalBroken means the repository is known to be broken
	RemovalBroken RemovalType = "broken"
)

// Addon holds the tracked state of a single add-on repository
type Addon struct {
	// ID is the numeric GitHub repository ID, stable across renames
	ID string `json:"id"`

	// FullName is the "owner/repo" slug
	FullName string `json:"full_name"`

	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Topics      []string `json:"topics,omitempty"`

	Stars         int    `json:"stars"`
	DefaultBranch string `json:"default_branch,omitempty"`
	Archived      bool   `json:"archived,omitempty"`

	// ETag is the last conditional-request tag returned by GitHub for this
	// repository, used to turn unchanged fetches into cheap 304 responses
	ETag string `json:"etag,omitempty"`

	// AvailableVersion is the newest published release tag (or default
	// branch head when the repository publishes no releases)
	AvailableVersion string `json:"available_version,omitempty"`

	// InstalledVersion is the version whose content has been downloaded
	InstalledVersion string `json:"installed_version,omitempty"`

	Installed bool `json:"installed"`

	// New is true until the add-on has been seen by a catalog refresh
	New bool `json:"new"`

	LastUpdated time.Time `json:"last_updated,omitzero"`
	LastFetched time.Time `json:"last_fetched,omitzero"`
}

// Clone returns a shallow copy. Registered add-ons are treated as
// immutable: updates mutate a clone and swap it into the registry, so
// concurrent readers always see a consistent snapshot.
func (a *Addon) Clone() *Addon {
	clone := *a
	return &clone
}

// FullNameLower returns the lower-cased full name used as registry key
func (a *Addon) FullNameLower() string {
	return strings.ToLower(a.FullName)
}

// String implements fmt.Stringer
func (a *Addon) String() string {
	return fmt.Sprintf("<%s %s>", a.Category, a.FullName)
}

// UpdateAvailable reports whether a newer version than the installed one is known
func (a *Addon) UpdateAvailable() bool {
	if !a.Installed || a.AvailableVersion == "" {
		return false
	}
	return a.AvailableVersion != a.InstalledVersion
}

// RemovedAddon records an add-on pulled from the curated catalog
type RemovedAddon struct {
	FullName     string      `json:"full_name"`
	Reason       string      `json:"reason,omitempty"`
	Link         string      `json:"link,omitempty"`
	RemovalType  RemovalType `json:"removal_type,omitempty"`
	Acknowledged bool        `json:"acknowledged"`
}

// Update copies the non-empty fields of other into the receiver
func (r *RemovedAddon) Update(other *RemovedAddon) {
	if other.Reason != "" {
		r.Reason = other.Reason
	}
	if other.Link != "" {
		r.Link = other.Link
	}
	if other.RemovalType != "" {
		r.RemovalType = other.RemovalType
	}
	r.Acknowledged = other.Acknowledged
}
