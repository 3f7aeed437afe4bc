//go:build !arm64

package mem

// amd64 keeps the instruction cache coherent with stores.
func cacheflush(buf []byte) {}
