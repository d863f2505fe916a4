//go:build !unix

package fs

// Locking is skipped where flock is unavailable.
func flockExclusive(fd int) error { return nil }

func flockUnlock(fd int) error { return nil }

func isLockNotSupportedError(err error) bool { return false }
