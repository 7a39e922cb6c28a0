// Package system wraps the process-level state a backup run touches:
// the umask and the platform capability checks that gate destructive
// filesystem operations.
package system

// DefaultUmask is applied during a backup run unless overridden, so
// snapshot files are created with the permissions rsync transfers.
const DefaultUmask = 0

// WithUmask sets the process umask and returns a function restoring
// the previous value. Intended use:
//
//	restore := system.WithUmask(mask)
//	defer restore()
func WithUmask(mask int) (restore func()) {
	old := setUmask(mask)
	return func() { setUmask(old) }
}
