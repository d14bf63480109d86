//go:build !linux && !darwin && !windows

package timestamp

import "time"

func setCreationTime(path string, t time.Time) error {
	return nil
}
