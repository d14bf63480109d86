//go:build windows

package timestamp

import (
	"syscall"
	"time"
)

// setCreationTime uses syscall.SetFileTime directly: Windows is the one
// platform where the stdlib actually exposes a creation-time syscall
// wrapper, so no external dependency is needed here.
func setCreationTime(path string, t time.Time) error {
	pathp, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	h, err := syscall.CreateFile(pathp,
		syscall.FILE_WRITE_ATTRIBUTES, syscall.FILE_SHARE_WRITE, nil,
		syscall.OPEN_EXISTING, syscall.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return err
	}
	defer syscall.CloseHandle(h)

	ft := syscall.NsecToFiletime(t.UnixNano())
	return syscall.SetFileTime(h, &ft, nil, nil)
}
