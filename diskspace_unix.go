//go:build linux || darwin || freebsd || openbsd

package dframe

import "golang.org/x/sys/unix"

// freeDiskSpace returns the bytes available to unprivileged users in the
// file system holding dir.
func freeDiskSpace(dir string) (int64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, false
	}
	return int64(st.Bavail) * int64(st.Bsize), true //nolint:gosec,unconvert
}
