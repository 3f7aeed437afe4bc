package hijack

import (
	"fmt"
	"io"
)

// HookInfo describes one hook for diagnostics.
type HookInfo struct {
	Name    string // symbol name of the target, or its address
	Target  Addr
	Enabled bool
}

// List returns every prepared hook in no particular order.
func (e *Engine) List() []HookInfo {
	t := e.reg.mu.RLock()
	defer e.reg.mu.RUnlock(t)

	hooks := make([]HookInfo, 0, len(e.reg.hooks))
	e.reg.forEach(func(h *hook) bool {
		hooks = append(hooks, HookInfo{
			Name:    symbolName(e.reg.resolver, h.target),
			Target:  h.target,
			Enabled: h.enabled,
		})
		return true
	})
	return hooks
}

// WriteList writes one "<name> <0|1>" line per hook.
func (e *Engine) WriteList(w io.Writer) error {
	for _, h := range e.List() {
		enabled := 0
		if h.Enabled {
			enabled = 1
		}
		if _, err := fmt.Fprintf(w, "%s %d\n", h.Name, enabled); err != nil {
			return err
		}
	}
	return nil
}

func symbolName(resolver SymbolResolver, addr Addr) string {
	if resolver != nil {
		if sym, ok := resolver.Resolve(addr); ok && sym.Name != "" {
			return sym.Name
		}
	}
	return addr.String()
}
