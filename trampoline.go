package hijack

import "github.com/pboyd/hijack/internal/mem"

var trampolineArena = &mem.Arena{}

// AllocTrampoline returns an executable region of TrampolineSize bytes for
// Prepare. Release it with FreeTrampoline once the hook has been removed.
func AllocTrampoline() ([]byte, error) {
	return trampolineArena.Allocate(TrampolineSize)
}

// FreeTrampoline releases a region returned by AllocTrampoline.
func FreeTrampoline(buf []byte) error {
	return trampolineArena.Free(buf)
}
