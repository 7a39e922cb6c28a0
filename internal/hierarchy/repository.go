package hierarchy

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/etorres/rbackup/internal/system"
)

const snapshotDirName = "data"

// Snapshot names are restricted to a filesystem-safe character class.
// Generated timestamp names fit it because ':' is replaced by '_'.
var snapshotNameRe = regexp.MustCompile(`^[A-Za-z0-9._+-]+$`)

// Repository is the directory that owns an ordered collection of
// snapshots. The snapshot names are persisted in the repository's
// metadata file as a JSON array; full paths are always recomputed as
// snapshotDir/name.
type Repository struct {
	Hierarchy

	names     []string
	snapshots []*Snapshot
}

var _ MetadataOwner = (*Repository)(nil)

// OpenRepository opens the repository at dest, initializing it on disk
// if no metadata file exists yet.
func OpenRepository(dest string) (*Repository, error) {
	h, err := New(dest)
	if err != nil {
		return nil, err
	}
	repo := &Repository{Hierarchy: h}

	var names []string
	err = repo.ReadMetadata(&names)
	switch {
	case errors.Is(err, ErrMetadataNotFound):
		if err := os.MkdirAll(repo.Path(), dirMode); err != nil {
			return nil, fmt.Errorf("failed to create repository directory: %w", err)
		}
		if err := repo.GenMetadata(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		repo.names = names
		for _, name := range names {
			snap, err := NewSnapshot(filepath.Join(repo.SnapshotDir(), name))
			if err != nil {
				return nil, err
			}
			repo.snapshots = append(repo.snapshots, snap)
		}
	}
	return repo, nil
}

// GenMetadata persists the current snapshot name list.
func (r *Repository) GenMetadata() error {
	if r.names == nil {
		r.names = []string{}
	}
	return r.WriteMetadata(r.names)
}

// SnapshotDir returns the directory in which snapshots are stored.
func (r *Repository) SnapshotDir() string {
	return filepath.Join(r.Path(), snapshotDirName)
}

// Snapshots returns the snapshots in this repository in creation order.
// The returned slice is a view; callers must not modify it.
func (r *Repository) Snapshots() []*Snapshot {
	return r.snapshots
}

// Len returns the number of snapshots in this repository.
func (r *Repository) Len() int {
	return len(r.snapshots)
}

// Empty reports whether this repository holds no snapshots.
func (r *Repository) Empty() bool {
	return len(r.snapshots) == 0
}

// Contains reports whether a snapshot with the given name exists.
func (r *Repository) Contains(name string) bool {
	return r.index(name) >= 0
}

// Snapshot returns the snapshot at index i. Negative indices count from
// the end, so Snapshot(-1) is the most recent snapshot.
func (r *Repository) Snapshot(i int) (*Snapshot, error) {
	if i < 0 {
		i += len(r.snapshots)
	}
	if i < 0 || i >= len(r.snapshots) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return r.snapshots[i], nil
}

// Current returns the most recently created snapshot, or nil if the
// repository is empty. The current snapshot is derived purely from the
// persisted ordered list; no symlink is maintained.
func (r *Repository) Current() *Snapshot {
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

// IsValidSnapshotName reports whether name may be used for a snapshot.
// Names are non-empty and limited to [A-Za-z0-9._+-].
func IsValidSnapshotName(name string) bool {
	return snapshotNameRe.MatchString(name)
}

// GenerateSnapshotName produces the default snapshot name for a backup
// run: the UTC timestamp in ISO-8601 form with ':' replaced by '_'.
func GenerateSnapshotName(now time.Time) string {
	return strings.ReplaceAll(now.UTC().Format("2006-01-02T15:04:05.000000"), ":", "_")
}

// CreateSnapshot creates a new snapshot in this repository. An empty
// name selects a generated timestamp name. If name already denotes a
// snapshot here, that snapshot is returned unchanged; rsync will write
// into the same directory on re-run.
//
// The snapshot directory is created before the name list is persisted:
// a crash in between orphans an empty directory instead of recording a
// snapshot that was never created.
func (r *Repository) CreateSnapshot(name string) (*Snapshot, error) {
	slog.Debug("creating snapshot", "name", name)

	if name == "" {
		name = GenerateSnapshotName(time.Now())
	}
	if !IsValidSnapshotName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if i := r.index(name); i >= 0 {
		slog.Warn("snapshot already exists, data will be overwritten", "name", name)
		return r.snapshots[i], nil
	}

	snap, err := NewSnapshot(filepath.Join(r.SnapshotDir(), name))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(snap.Path(), dirMode); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	r.names = append(r.names, name)
	r.snapshots = append(r.snapshots, snap)
	if err := r.WriteMetadata(r.names); err != nil {
		r.names = r.names[:len(r.names)-1]
		r.snapshots = r.snapshots[:len(r.snapshots)-1]
		return nil, err
	}

	if err := snap.GenMetadata(); err != nil {
		slog.Warn("failed to write snapshot metadata", "name", name, "error", err)
	}

	slog.Debug("snapshot created", "name", snap.Name())
	return snap, nil
}

// Cleanup deletes the repository's metadata file and, optionally, its
// snapshot data directory or its entire directory tree. When the
// platform cannot guarantee symlink-safe recursive deletion the whole
// operation is refused and no filesystem mutation occurs.
func (r *Repository) Cleanup(removeSnapshots, removeRepoDir bool) error {
	if !system.SafeRemovalSupported() {
		slog.Error("refusing cleanup, platform is vulnerable to symlink replacement", "path", r.Path())
		return ErrUnsafeCleanup
	}

	if err := os.Remove(r.MetadataPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove metadata file: %w", err)
	}
	if removeSnapshots {
		if err := os.RemoveAll(r.SnapshotDir()); err != nil {
			return fmt.Errorf("failed to remove snapshot directory: %w", err)
		}
	}
	if removeRepoDir {
		if err := os.RemoveAll(r.Path()); err != nil {
			return fmt.Errorf("failed to remove repository directory: %w", err)
		}
	}
	return nil
}

func (r *Repository) index(name string) int {
	for i, n := range r.names {
		if n == name {
			return i
		}
	}
	return -1
}
