package hierarchy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/etorres/rbackup/internal/system"
)

const (
	metadataFile = ".metadata"

	dirMode  = 0o755
	fileMode = 0o644
)

// MetadataOwner is implemented by hierarchies that know how to
// initialize their own metadata payload.
type MetadataOwner interface {
	GenMetadata() error
}

// Hierarchy is a filesystem location with an associated metadata
// side-file. Snapshot and Repository embed it by value and add their
// own operations on top.
type Hierarchy struct {
	path string
}

// New builds a Hierarchy rooted at dest. The path is canonicalized to
// an absolute form; dest may be relative.
func New(dest string) (Hierarchy, error) {
	if dest == "" {
		return Hierarchy{}, fmt.Errorf("%w: empty destination", ErrInvalidPath)
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return Hierarchy{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return Hierarchy{path: filepath.Clean(abs)}, nil
}

// Path returns the base directory of this hierarchy.
func (h Hierarchy) Path() string {
	return h.path
}

// Name returns the basename of this hierarchy's path.
func (h Hierarchy) Name() string {
	return filepath.Base(h.path)
}

// MetadataPath returns the path of this hierarchy's metadata file.
func (h Hierarchy) MetadataPath() string {
	return filepath.Join(h.path, metadataFile)
}

// ReadMetadata deserializes the metadata file into v.
func (h Hierarchy) ReadMetadata(v any) error {
	slog.Debug("reading metadata", "path", h.MetadataPath())

	data, err := os.ReadFile(h.MetadataPath())
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMetadataNotFound, h.MetadataPath())
	}
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMetadataCorrupt, err)
	}
	return nil
}

// WriteMetadata serializes v to a temporary file next to the metadata
// file, then renames it into place. A concurrent reader sees either the
// old complete content or the new complete content, never a mix.
func (h Hierarchy) WriteMetadata(v any) error {
	slog.Debug("writing metadata", "path", h.MetadataPath())

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	tmp := h.MetadataPath() + ".tmp"
	if err := os.WriteFile(tmp, data, fileMode); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmp, h.MetadataPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace metadata: %w", err)
	}
	return nil
}

// Cleanup recursively removes this hierarchy's directory tree. If the
// platform cannot guarantee symlink-safe recursive deletion, nothing is
// removed: the refusal is logged and Cleanup returns without error.
func (h Hierarchy) Cleanup() error {
	if !system.SafeRemovalSupported() {
		slog.Error("refusing recursive delete, platform is vulnerable to symlink replacement", "path", h.path)
		return nil
	}
	if err := os.RemoveAll(h.path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", h.path, err)
	}
	return nil
}
