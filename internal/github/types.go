package github

import "time"

// Repository is the subset of GitHub repository metadata the hub tracks
type Repository struct {
	ID              int64     `json:"id"`
	FullName        string    `json:"full_name"`
	Description     string    `json:"description"`
	DefaultBranch   string    `json:"default_branch"`
	StargazersCount int       `json:"stargazers_count"`
	Topics          []string  `json:"topics"`
	Archived        bool      `json:"archived"`
	PushedAt        time.Time `json:"pushed_at"`

	// ETag is the entity tag of the response this data came from; passing
	// it back turns an unchanged fetch into a 304
	ETag string `json:"-"`
}

// Release is a published GitHub release
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// RateLimit is the core rate-limit state of the authenticated client
type RateLimit struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
}

// ResetTime returns the reset moment as a time.Time
func (r *RateLimit) ResetTime() time.Time {
	return time.Unix(r.Reset, 0)
}

// RemovedRecord is one entry of the curated removed-add-ons list
type RemovedRecord struct {
	Repository  string `json:"repository"`
	Reason      string `json:"reason,omitempty"`
	Link        string `json:"link,omitempty"`
	RemovalType string `json:"removal_type,omitempty"`
}

// CriticalRecord is one entry of the curated critical-add-ons list
type CriticalRecord struct {
	Repository string `json:"repository"`
	Reason     string `json:"reason,omitempty"`
	Link       string `json:"link,omitempty"`
}
