// Package diskusage reports free/used/total space for the filesystem
// backing a directory, for the admin status endpoint.
package diskusage

import (
	"fmt"
	"syscall"

	"github.com/dustin/go-humanize"
)

// Usage is the disk usage of the filesystem holding a path, in bytes.
type Usage struct {
	Total uint64
	Free  uint64
	Used  uint64
}

// Stat reports disk usage for the filesystem backing path.
func Stat(path string) (Usage, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return Usage{}, fmt.Errorf("diskusage: statfs %s: %w", path, err)
	}

	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return Usage{
		Total: total,
		Free:  free,
		Used:  total - free,
	}, nil
}

// String renders u as human-readable sizes, e.g. "12 GB used of 50 GB".
func (u Usage) String() string {
	return fmt.Sprintf("%s used of %s (%s free)", humanize.Bytes(u.Used), humanize.Bytes(u.Total), humanize.Bytes(u.Free))
}
