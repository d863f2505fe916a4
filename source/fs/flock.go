package fs

// fileLock takes an exclusive lock on fd. Filesystems without lock support
// (NFS, SMB) proceed unlocked.
func fileLock(fd int) (unlock func(), err error) {
	if err := flockExclusive(fd); err != nil {
		if isLockNotSupportedError(err) {
			return func() {}, nil
		}
		return nil, err
	}
	return func() { flockUnlock(fd) }, nil
}
