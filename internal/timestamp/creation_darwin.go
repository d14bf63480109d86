//go:build darwin

package timestamp

import (
	"os/exec"
	"time"
)

// setCreationTime shells out to SetFile, the standard macOS developer-tools
// utility for rewriting HFS+/APFS creation-date metadata, since the
// underlying setattrlist syscall has no stdlib wrapper.
func setCreationTime(path string, t time.Time) error {
	if _, err := exec.LookPath("SetFile"); err != nil {
		return nil
	}
	return exec.Command("SetFile", "-d", t.Format("01/02/2006 15:04:05"), path).Run()
}
