// Package tracker answers whether a loom has dependent child looms.
package tracker

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/firefly-engineering/loom/internal/config"
	"github.com/firefly-engineering/loom/internal/logging"
	"github.com/firefly-engineering/loom/internal/system"
)

// Tracker reports the active children of a branch.
type Tracker interface {
	Children(ctx context.Context, parentBranch string) ([]string, error)
}

// MetadataTracker derives parent/child relations from loom metadata records.
// A child only counts while its workspace directory still exists, so records
// left behind by looms deleted outside of loom do not block teardown forever.
type MetadataTracker struct {
	loomsDir string
	fs       system.FileSystem
}

// NewMetadataTracker returns a tracker reading records from loomsDir. A nil
// filesystem uses the OS.
func NewMetadataTracker(loomsDir string, fsys system.FileSystem) *MetadataTracker {
	if fsys == nil {
		fsys = system.DefaultFS()
	}
	return &MetadataTracker{loomsDir: loomsDir, fs: fsys}
}

// Children returns the branches of active looms whose parent is
// parentBranch, sorted.
func (t *MetadataTracker) Children(ctx context.Context, parentBranch string) ([]string, error) {
	if parentBranch == "" {
		return nil, nil
	}

	records, err := config.ListLoomMetadata(t.loomsDir)
	if err != nil {
		return nil, err
	}

	var children []string
	for _, rec := range records {
		if rec.ParentBranch != parentBranch || rec.Branch == parentBranch {
			continue
		}
		if rec.Path != "" && !t.fs.Exists(filepath.Clean(rec.Path)) {
			logging.Debug("ignoring stale child record", "branch", rec.Branch, "path", rec.Path)
			continue
		}
		children = append(children, rec.Branch)
	}
	sort.Strings(children)
	return children, nil
}
