package addon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/addonhub/addonhub/internal/addon"
)

func TestCategory_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category addon.Category
		want     bool
	}{
		{
			name:     "integration",
			category: addon.CategoryIntegration,
			want:     true,
		},
		{
			name:     "plugin",
			category: addon.CategoryPlugin,
			want:     true,
		},
		{
			name:     "theme",
			category: addon.CategoryTheme,
			want:     true,
		},
		{
			name:     "unknown category",
			category: addon.Category("appdaemon"),
			want:     false,
		},
		{
			name:     "empty category",
			category: addon.Category(""),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.category.Valid())
		})
	}
}

func TestAddon_Clone(t *testing.T) {
	t.Parallel()

	original := &addon.Addon{
		ID:       "123",
		FullName: "owner/repo",
		Category: addon.CategoryIntegration,
		Stars:    42,
	}

	clone := original.Clone()
	clone.Stars = 99
	clone.FullName = "owner/renamed"

	assert.Equal(t, 42, original.Stars, "mutating the clone must not touch the original")
	assert.Equal(t, "owner/repo", original.FullName)
	assert.Equal(t, "123", clone.ID)
}

func TestAddon_UpdateAvailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		addon addon.Addon
		want  bool
	}{
		{
			name: "newer version available",
			addon: addon.Addon{
				Installed:        true,
				InstalledVersion: "1.0.0",
				AvailableVersion: "1.1.0",
			},
			want: true,
		},
		{
			name: "up to date",
			addon: addon.Addon{
				Installed:        true,
				InstalledVersion: "1.1.0",
				AvailableVersion: "1.1.0",
			},
			want: false,
		},
		{
			name: "not installed",
			addon: addon.Addon{
				AvailableVersion: "1.1.0",
			},
			want: false,
		},
		{
			name: "no known available version",
			addon: addon.Addon{
				Installed:        true,
				InstalledVersion: "1.0.0",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.addon.UpdateAvailable())
		})
	}
}

func TestRemovedAddon_Update(t *testing.T) {
	t.Parallel()

	rec := &addon.RemovedAddon{
		FullName: "owner/repo",
		Reason:   "old reason",
	}

	rec.Update(&addon.RemovedAddon{
		FullName:    "owner/repo",
		Reason:      "new reason",
		RemovalType: addon.RemovalCritical,
	})

	assert.Equal(t, "new reason", rec.Reason)
	assert.Equal(t, addon.RemovalCritical, rec.RemovalType)

	// Empty fields do not overwrite existing values
	rec.Update(&addon.RemovedAddon{FullName: "owner/repo"})
	assert.Equal(t, "new reason", rec.Reason)
	assert.Equal(t, addon.RemovalCritical, rec.RemovalType)
}
