package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	errs "imgcrawl/pkg/errors"
)

// Manager owns the output tree: one directory per query under a root
type Manager struct {
	root string
}

// NewManager creates a new storage manager rooted at dir
func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeFilesystem, "failed to create output directory", err)
	}
	return &Manager{root: root}, nil
}

// Root returns the output root directory
func (m *Manager) Root() string {
	return m.root
}

// QueryDir returns the directory holding images for query. Path separators
// in the query are replaced so every query stays directly under the root.
func (m *Manager) QueryDir(query string) string {
	name := strings.NewReplacer("/", "_", `\`, "_").Replace(query)
	if name == "." || name == ".." {
		name = strings.Repeat("_", len(name))
	}
	return filepath.Join(m.root, name)
}

// PrepareQueryDir makes sure the query directory exists. With forceReplace
// any existing directory and its contents are removed first.
func (m *Manager) PrepareQueryDir(query string, forceReplace bool) (string, error) {
	dir := m.QueryDir(query)

	if forceReplace {
		if err := os.RemoveAll(dir); err != nil {
			return "", errs.Wrap(errs.ErrorTypeFilesystem, fmt.Sprintf("failed to remove %s", dir), err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errs.Wrap(errs.ErrorTypeFilesystem, fmt.Sprintf("failed to create %s", dir), err)
	}
	return dir, nil
}

// Save writes r to path atomically and returns the number of bytes written.
// Nothing is left at path (or beside it) when the write fails.
func (m *Manager) Save(r io.Reader, path string) (int64, error) {
	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return 0, errs.Wrap(errs.ErrorTypeFilesystem, "failed to create temporary file", err)
	}

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return n, errs.Wrap(errs.ErrorTypeFilesystem, "failed to close file", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return n, errs.Wrap(errs.ErrorTypeFilesystem, "failed to rename temporary file", err)
	}
	return n, nil
}

// SaveJSON atomically writes v as indented JSON
func (m *Manager) SaveJSON(v interface{}, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	_, err = m.Save(strings.NewReader(string(data)), path)
	return err
}

// Remove deletes path; a missing file is not an error
func (m *Manager) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.ErrorTypeFilesystem, "failed to remove file", err)
	}
	return nil
}
