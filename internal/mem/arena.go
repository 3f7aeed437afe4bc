package mem

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/pboyd/malloc"
)

// Arena hands out small executable buffers, such as trampolines. The backing
// pages stay read+execute except while an allocation or free is in progress.
type Arena struct {
	*malloc.Arena
	mprotect func(int) error
	mu       sync.Mutex
	initOnce sync.Once
	mutable  bool
}

// mmap flags for the arena. Trampolines end in an absolute jump, so there is
// no need to map them near the text segment.
const mmapFlags = 0

func (a *Arena) init(startSize int) error {
	var err error
	a.initOnce.Do(func() {
		be := malloc.MmapBackend(malloc.MmapProt(mmapProt), malloc.MmapFlags(mmapFlags))
		if protBE, ok := be.(malloc.ProtectedArenaBackend); ok {
			a.mprotect = protBE.Protect
		} else {
			a.mprotect = func(int) error {
				return nil
			}
		}

		a.Arena = malloc.NewArena(uint64(startSize), malloc.Backend(be))
		if a.Arena == nil {
			err = errors.New("unable to initialize arena")
			return
		}
		a.mutable = true
	})
	return err
}

func (a *Arena) beginMutate() error {
	// Note that beginMutate can be called before the initial allocation.
	if a.mprotect == nil || a.mutable {
		return nil
	}

	err := a.mprotect(mprotectRWX)
	if err == nil {
		a.mutable = true
	}
	return err
}

func (a *Arena) endMutate() error {
	if !a.mutable {
		return nil
	}

	err := a.mprotect(mprotectRX)
	if err == nil {
		a.mutable = false
	}
	return err
}

// Allocate returns a zeroed executable buffer of size bytes.
func (a *Arena) Allocate(size int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	protMu.Lock()
	defer protMu.Unlock()

	err := a.init(size)
	if err != nil {
		return nil, errors.Wrap(err, "error initializing allocator")
	}

	err = a.beginMutate()
	if err != nil {
		return nil, err
	}
	defer a.endMutate()

	buf, err := malloc.MallocSlice[byte](a.Arena, size)
	if err != nil {
		return nil, err
	}
	clear(buf)
	return buf, nil
}

// Free returns buf to the arena.
func (a *Arena) Free(buf []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	protMu.Lock()
	defer protMu.Unlock()

	if a.Arena == nil {
		return errors.New("free on an arena that never allocated")
	}

	err := a.beginMutate()
	if err != nil {
		return err
	}
	defer a.endMutate()

	malloc.FreeSlice(a.Arena, buf)
	return nil
}
