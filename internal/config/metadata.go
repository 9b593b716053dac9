package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	loomerrors "github.com/firefly-engineering/loom/internal/errors"
)

// LoomMetadata records what a loom owns and what it depends on.
type LoomMetadata struct {
	Branch         string   `json:"branch"`
	Path           string   `json:"path"`
	ParentBranch   string   `json:"parentBranch,omitempty"` // Branch this loom was forked from
	IssueID        string   `json:"issueId,omitempty"`
	PRNumber       int      `json:"prNumber,omitempty"`
	DatabaseBranch string   `json:"databaseBranch,omitempty"`
	Executables    []string `json:"executables,omitempty"` // Versioned executable names in the bin directory
	CreatedAt      string   `json:"createdAt"`
}

// Validate checks that the LoomMetadata is valid.
func (m *LoomMetadata) Validate() error {
	if m.Branch == "" {
		return fmt.Errorf("branch is required")
	}
	if m.Path == "" {
		return fmt.Errorf("path is required")
	}
	if m.PRNumber < 0 {
		return fmt.Errorf("prNumber must not be negative (got %d)", m.PRNumber)
	}
	return nil
}

// MetadataKey returns the file stem for a branch's metadata record.
// The mapping is lossy ("a/b" and "a--b" share a key), so every record
// carries its branch and is only served for that branch.
func MetadataKey(branch string) string {
	return strings.ReplaceAll(branch, "/", "--")
}

// readRecord returns the record stored under branch's key, whichever branch
// it belongs to.
func readRecord(loomsDir, branch string) (*LoomMetadata, error) {
	metaPath, err := safePath(loomsDir, MetadataKey(branch), ".json")
	if err != nil {
		return nil, fmt.Errorf("invalid branch name: %w", err)
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var metadata LoomMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse loom metadata: %w", err)
	}
	return &metadata, nil
}

// LoadLoomMetadata loads the metadata record for branch.
func LoadLoomMetadata(loomsDir, branch string) (*LoomMetadata, error) {
	metadata, err := readRecord(loomsDir, branch)
	if err != nil {
		return nil, fmt.Errorf("loom metadata not found for %s: %w", branch, err)
	}
	if metadata.Branch != branch {
		return nil, fmt.Errorf("loom metadata not found for %s: key is held by %s: %w", branch, metadata.Branch, fs.ErrNotExist)
	}
	return metadata, nil
}

// SaveLoomMetadata saves a metadata record keyed by its branch. It refuses
// to overwrite a record that belongs to a different branch with the same key.
func SaveLoomMetadata(loomsDir string, metadata *LoomMetadata) error {
	if err := metadata.Validate(); err != nil {
		return fmt.Errorf("invalid loom metadata: %w", err)
	}
	if err := os.MkdirAll(loomsDir, 0755); err != nil {
		return fmt.Errorf("failed to create looms directory: %w", err)
	}

	metaPath, err := safePath(loomsDir, MetadataKey(metadata.Branch), ".json")
	if err != nil {
		return fmt.Errorf("invalid branch name: %w", err)
	}
	if existing, err := readRecord(loomsDir, metadata.Branch); err == nil && existing.Branch != metadata.Branch {
		return loomerrors.New(loomerrors.ExitConflict,
			fmt.Sprintf("loom metadata for %s would overwrite the record of %s", metadata.Branch, existing.Branch))
	}
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// DeleteLoomMetadata removes the metadata record for branch. Removing a
// record that does not exist, or that belongs to another branch, is not an
// error and leaves the file alone.
func DeleteLoomMetadata(loomsDir, branch string) error {
	metaPath, err := safePath(loomsDir, MetadataKey(branch), ".json")
	if err != nil {
		return fmt.Errorf("invalid branch name: %w", err)
	}
	if existing, err := readRecord(loomsDir, branch); err == nil && existing.Branch != branch {
		return nil
	}
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// LoomMetadataExists checks if a metadata record exists for branch.
func LoomMetadataExists(loomsDir, branch string) bool {
	metadata, err := readRecord(loomsDir, branch)
	return err == nil && metadata.Branch == branch
}

// ListLoomMetadata returns every readable metadata record.
func ListLoomMetadata(loomsDir string) ([]*LoomMetadata, error) {
	entries, err := os.ReadDir(loomsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read looms directory: %w", err)
	}

	var looms []*LoomMetadata
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(loomsDir, entry.Name()))
		if err != nil {
			continue
		}
		var metadata LoomMetadata
		if err := json.Unmarshal(data, &metadata); err != nil {
			continue
		}
		looms = append(looms, &metadata)
	}

	return looms, nil
}

// MetadataStore is a LoomMetadata directory bound to its location.
type MetadataStore struct {
	Dir string
}

// NewMetadataStore returns a store rooted at dir.
func NewMetadataStore(dir string) *MetadataStore {
	return &MetadataStore{Dir: dir}
}

// Load returns the record for branch.
func (s *MetadataStore) Load(branch string) (*LoomMetadata, error) {
	return LoadLoomMetadata(s.Dir, branch)
}

// Save writes a record.
func (s *MetadataStore) Save(m *LoomMetadata) error {
	return SaveLoomMetadata(s.Dir, m)
}

// Delete removes the record for branch.
func (s *MetadataStore) Delete(branch string) error {
	return DeleteLoomMetadata(s.Dir, branch)
}

// Exists reports whether a record exists for branch.
func (s *MetadataStore) Exists(branch string) bool {
	return LoomMetadataExists(s.Dir, branch)
}

// List returns every readable record.
func (s *MetadataStore) List() ([]*LoomMetadata, error) {
	return ListLoomMetadata(s.Dir)
}
