//go:build !unix

package system

func setUmask(mask int) int {
	return 0
}

// SafeRemovalSupported reports whether recursive deletion is protected
// against symlink-replacement races. Outside unix no such guarantee
// exists, so destructive cleanup must be refused.
func SafeRemovalSupported() bool {
	return false
}
