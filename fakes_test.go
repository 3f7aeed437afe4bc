package hijack

import (
	"encoding/binary"
	"sync"

	"github.com/cockroachdb/errors"
)

// fakeMemory is a sparse byte map standing in for the text segment. It
// records protection changes and writes, along with barrier entry and exit,
// in events.
type fakeMemory struct {
	mu     sync.Mutex
	bytes  map[Addr]byte
	writes []Addr
	events []string

	unprotected map[Addr]bool
	notExec     bool
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{
		bytes:       map[Addr]byte{},
		unprotected: map[Addr]bool{},
	}
}

func (m *fakeMemory) record(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *fakeMemory) Unprotect(addr Addr, n int) (func() error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unprotected[addr] = true
	m.events = append(m.events, "unprotect "+addr.String())

	return func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.unprotected, addr)
		m.events = append(m.events, "restore "+addr.String())
		return nil
	}, nil
}

func (m *fakeMemory) Executable(addr Addr, n int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.notExec, nil
}

// fill puts a recognizable pattern at [addr, addr+n).
func (m *fakeMemory) fill(addr Addr, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.bytes[addr+Addr(i)] = byte(0x40 + i)
	}
}

func (m *fakeMemory) Read(addr Addr, n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = m.bytes[addr+Addr(i)]
	}
	return buf, nil
}

func (m *fakeMemory) Write(addr Addr, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.unprotected[addr] {
		return errors.Newf("write to protected %s", addr)
	}
	m.events = append(m.events, "write "+addr.String())
	for i, b := range data {
		m.bytes[addr+Addr(i)] = b
	}
	m.writes = append(m.writes, addr)
	return nil
}

// writesTo counts writes that started at addr.
func (m *fakeMemory) writesTo(addr Addr) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, w := range m.writes {
		if w == addr {
			n++
		}
	}
	return n
}

type fakeSymbol struct {
	entry Addr
	Symbol
}

type fakeResolver []fakeSymbol

func (r fakeResolver) Resolve(addr Addr) (Symbol, bool) {
	for _, s := range r {
		if addr >= s.entry && addr < s.entry+Addr(s.Size) {
			sym := s.Symbol
			sym.Offset = uintptr(addr - s.entry)
			return sym, true
		}
	}
	return Symbol{}, false
}

// fakeBarrier fails the first failures calls with err, then runs fn.
type fakeBarrier struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int

	// trace, if set, is told when fn starts and ends.
	trace func(string)
}

func (b *fakeBarrier) Run(fn func() error) error {
	b.mu.Lock()
	b.calls++
	if b.failures > 0 {
		b.failures--
		b.mu.Unlock()
		return b.err
	}
	b.mu.Unlock()

	if b.trace != nil {
		b.trace("pause")
		defer b.trace("resume")
	}
	return fn()
}

type fakeActivity struct {
	active map[Addr]bool
}

func (a fakeActivity) ActiveWithin(addr Addr, size int) bool {
	return a.active[addr]
}

type fakeExcise struct {
	reject map[Addr]bool
}

func (x fakeExcise) CanExcise(addr Addr, code []byte) error {
	if x.reject[addr] {
		return errors.New("relative branch")
	}
	return nil
}

// fakeJump encodes 0xE9, the little-endian destination, then 0xCC padding.
type fakeJump struct{}

func (fakeJump) EncodeJump(buf []byte, dest Addr) error {
	if len(buf) < 9 {
		return errors.New("buffer too small")
	}
	buf[0] = 0xE9
	binary.LittleEndian.PutUint64(buf[1:], uint64(dest))
	for i := 9; i < len(buf); i++ {
		buf[i] = 0xCC
	}
	return nil
}

func fakeJumpBytes(dest Addr, n int) []byte {
	buf := make([]byte, n)
	_ = fakeJump{}.EncodeJump(buf, dest)
	return buf
}
