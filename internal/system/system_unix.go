//go:build unix

package system

import "golang.org/x/sys/unix"

func setUmask(mask int) int {
	return unix.Umask(mask)
}

// SafeRemovalSupported reports whether recursive deletion is protected
// against symlink-replacement races. On unix, os.RemoveAll descends
// with unlinkat/openat relative to directory file descriptors, which
// closes the race window.
func SafeRemovalSupported() bool {
	return true
}
