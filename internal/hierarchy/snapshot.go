package hierarchy

import (
	"errors"
	"path/filepath"
	"time"
)

// Snapshot is one backup run's directory tree inside a repository's
// data directory. rsync hardlinks unchanged files between snapshots;
// the Snapshot itself only knows its own layout.
type Snapshot struct {
	Hierarchy
}

var _ MetadataOwner = (*Snapshot)(nil)

type snapshotMetadata struct {
	CreatedAt time.Time `json:"created_at"`
}

// NewSnapshot builds a Snapshot rooted at path. The directory is not
// created; that is the repository's job.
func NewSnapshot(path string) (*Snapshot, error) {
	h, err := New(path)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Hierarchy: h}, nil
}

// PkgDir returns the package manager backup directory of this snapshot.
func (s *Snapshot) PkgDir() string {
	return filepath.Join(s.Path(), "pkg")
}

// SubdirPath returns the backup directory for one backed-up subsystem,
// e.g. SubdirPath("etc") for the /etc tree.
func (s *Snapshot) SubdirPath(segment string) string {
	return filepath.Join(s.Path(), segment)
}

// GenMetadata persists this snapshot's creation timestamp. It is a
// no-op when metadata already exists.
func (s *Snapshot) GenMetadata() error {
	var meta snapshotMetadata
	err := s.ReadMetadata(&meta)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrMetadataNotFound) {
		return err
	}
	meta.CreatedAt = time.Now().UTC()
	return s.WriteMetadata(meta)
}

// CreatedAt returns the snapshot's creation time, generating and
// persisting it on first access.
func (s *Snapshot) CreatedAt() (time.Time, error) {
	var meta snapshotMetadata
	err := s.ReadMetadata(&meta)
	if errors.Is(err, ErrMetadataNotFound) {
		if err := s.GenMetadata(); err != nil {
			return time.Time{}, err
		}
		err = s.ReadMetadata(&meta)
	}
	if err != nil {
		return time.Time{}, err
	}
	return meta.CreatedAt, nil
}

// Equal reports whether two snapshots denote the same canonical path.
func (s *Snapshot) Equal(other *Snapshot) bool {
	return other != nil && s.Path() == other.Path()
}
