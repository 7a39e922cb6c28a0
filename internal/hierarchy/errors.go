package hierarchy

import "errors"

var (
	// ErrInvalidPath is returned when a destination cannot be
	// interpreted as a filesystem path.
	ErrInvalidPath = errors.New("invalid hierarchy path")

	// ErrMetadataNotFound is returned when a hierarchy has no metadata
	// file on disk.
	ErrMetadataNotFound = errors.New("metadata file not found")

	// ErrMetadataCorrupt is returned when a metadata file exists but
	// cannot be deserialized.
	ErrMetadataCorrupt = errors.New("metadata file is corrupt")

	// ErrInvalidName is returned when a snapshot name fails validation.
	ErrInvalidName = errors.New("invalid snapshot name")

	// ErrIndexOutOfRange is returned by indexed snapshot access.
	ErrIndexOutOfRange = errors.New("snapshot index out of range")

	// ErrUnsafeCleanup is returned when recursive deletion is refused
	// because the platform cannot guarantee symlink-safe removal.
	ErrUnsafeCleanup = errors.New("recursive delete is not symlink-safe on this platform")
)
