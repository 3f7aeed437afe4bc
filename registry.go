package hijack

import (
	"github.com/puzpuzpuz/xsync/v4"
)

// hook is the state kept for one hijacked target.
type hook struct {
	target Addr

	// original holds the HijackSize bytes that were at target when it was
	// prepared. They are written back verbatim on disable.
	original []byte

	// dest is the replacement function.
	dest Addr

	// trampoline is caller owned. It receives original followed by a
	// jump to returnAddr.
	trampoline []byte
	returnAddr Addr

	enabled bool
}

// registry tracks hooks by target. Lookups for diagnostics take the read
// lock; everything that changes a hook or the map takes the write lock.
// Readers vastly outnumber writers, hence the reader-biased mutex.
type registry struct {
	mu       *xsync.RBMutex
	hooks    map[Addr]*hook
	resolver SymbolResolver
}

func newRegistry() *registry {
	return &registry{
		mu:    xsync.NewRBMutex(),
		hooks: make(map[Addr]*hook),
	}
}

// insert adds h. The write lock must be held.
func (r *registry) insert(h *hook) error {
	if _, ok := r.hooks[h.target]; ok {
		return ErrDuplicateTarget
	}
	r.hooks[h.target] = h
	return nil
}

// find returns the hook for target or nil. Either lock must be held.
func (r *registry) find(target Addr) *hook {
	return r.hooks[target]
}

// remove drops the hook for target. The write lock must be held and the
// hook must be disabled.
func (r *registry) remove(target Addr) {
	if h, ok := r.hooks[target]; ok && h.enabled {
		panic("hijack: removing an enabled hook")
	}
	delete(r.hooks, target)
}

// forEach calls fn for every hook, in no particular order, until fn returns
// false. Either lock must be held; fn may call remove.
func (r *registry) forEach(fn func(*hook) bool) {
	for _, h := range r.hooks {
		if !fn(h) {
			return
		}
	}
}

// contains reports whether target has been prepared.
func (r *registry) contains(target Addr) bool {
	t := r.mu.RLock()
	defer r.mu.RUnlock(t)
	return r.find(target) != nil
}

// symbols returns the resolver installed by Init.
func (r *registry) symbols() (SymbolResolver, error) {
	t := r.mu.RLock()
	defer r.mu.RUnlock(t)
	if r.resolver == nil {
		return nil, ErrNotInitialized
	}
	return r.resolver, nil
}
