//go:build !linux

package mem

import "github.com/cockroachdb/errors"

// ErrNoMappings is returned where the process mappings cannot be listed.
var ErrNoMappings = errors.New("memory mappings unavailable on this platform")

// Executable reports whether [addr, addr+n) lies in one executable mapping
// of this process. Only Linux exposes the mappings.
func Executable(addr uintptr, n int) (bool, error) {
	return false, ErrNoMappings
}
