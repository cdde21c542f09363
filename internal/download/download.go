// Package download fetches add-on content from GitHub at a pinned ref.
package download

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// FetchConfig describes what to fetch
type FetchConfig struct {
	// URL is the repository clone URL
	URL string

	// Tag pins the content to a release tag (mutually exclusive with Branch)
	Tag string

	// Branch pins the content to a branch head
	Branch string

	// Path restricts the result to files under this repository sub-path.
	// Empty means the whole tree.
	Path string
}

// Client fetches add-on content
type Client interface {
	// Fetch clones the repository at the configured ref and returns the
	// content files keyed by repository-relative path
	Fetch(ctx context.Context, cfg *FetchConfig) (map[string][]byte, error)
}

// defaultClient implements Client using in-memory go-git clones
type defaultClient struct{}

// NewClient creates a new download client
func NewClient() Client {
	return &defaultClient{}
}

// Fetch clones the repository at the configured ref and returns its content
func (*defaultClient) Fetch(ctx context.Context, cfg *FetchConfig) (map[string][]byte, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("fetch configuration requires a repository URL")
	}
	if cfg.Tag != "" && cfg.Branch != "" {
		return nil, fmt.Errorf("only one of tag or branch may be specified")
	}

	cloneOptions := &git.CloneOptions{
		URL:          cfg.URL,
		Depth:        1,
		SingleBranch: true,
	}
	if cfg.Tag != "" {
		cloneOptions.ReferenceName = plumbing.NewTagReferenceName(cfg.Tag)
	} else if cfg.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(cfg.Branch)
	}

	// go-git wants separate filesystems for the storer and the checked out files
	storer := filesystem.NewStorage(memfs.New(), cache.NewObjectLRUDefault())
	repo, err := git.CloneContext(ctx, storer, memfs.New(), cloneOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", cfg.URL, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	prefix := strings.Trim(cfg.Path, "/")
	files := make(map[string][]byte)

	err = tree.Files().ForEach(func(f *object.File) error {
		if prefix != "" && !underPath(f.Name, prefix) {
			return nil
		}
		reader, err := f.Reader()
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		defer func() {
			_ = reader.Close()
		}()

		content, err := io.ReadAll(reader)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		files[f.Name] = content
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no content found under %q in %s", cfg.Path, cfg.URL)
	}
	return files, nil
}

// underPath reports whether name is prefix itself or a file below it
func underPath(name, prefix string) bool {
	if name == prefix {
		return true
	}
	return strings.HasPrefix(name, prefix+"/") || path.Dir(name) == prefix
}
