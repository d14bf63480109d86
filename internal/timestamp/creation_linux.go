//go:build linux

package timestamp

import "time"

// setCreationTime is a no-op on Linux: ext4/xfs expose a birth time via
// statx(2), but no portable Go stdlib call sets it, and no library in the
// dependency corpus wraps that syscall. Treated as an accepted platform
// limitation rather than implemented via a raw syscall, matching the
// capability's "best-effort, OS-dependent" contract.
func setCreationTime(path string, t time.Time) error {
	return nil
}
