//go:build linux || darwin || freebsd

package api

import "golang.org/x/sys/unix"

// diskSpace returns the bytes available to unprivileged users and the
// volume size for the filesystem holding path.
func diskSpace(path string) (free, total uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	bsize := uint64(st.Bsize) //nolint:gosec // block size is positive
	return uint64(st.Bavail) * bsize, uint64(st.Blocks) * bsize, nil //nolint:gosec // counts are non-negative
}
