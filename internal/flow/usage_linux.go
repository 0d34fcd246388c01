package flow

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// partitionUsage reports usage of the filesystem holding dir, matching
// how the monitored engine accounts repository capacity.
func partitionUsage(dir string) (StorageUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return StorageUsage{}, fmt.Errorf("statfs %s: %w", dir, err)
	}
	bsize := int64(st.Bsize)
	total := int64(st.Blocks) * bsize
	free := int64(st.Bavail) * bsize
	return StorageUsage{UsedSpace: total - free, TotalSpace: total}, nil
}
