//go:build linux

package mem

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/procfs"
)

// Executable reports whether [addr, addr+n) lies in one executable mapping
// of this process.
func Executable(addr uintptr, n int) (bool, error) {
	proc, err := procfs.Self()
	if err != nil {
		return false, errors.Wrap(err, "open /proc/self")
	}
	maps, err := proc.ProcMaps()
	if err != nil {
		return false, errors.Wrap(err, "read /proc/self/maps")
	}

	end := addr + uintptr(n)
	for _, m := range maps {
		if addr >= m.StartAddr && end <= m.EndAddr {
			return m.Perms != nil && m.Perms.Execute, nil
		}
	}
	return false, nil
}
