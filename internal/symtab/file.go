package symtab

import (
	"debug/gosym"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// File resolves addresses in an executable on disk using its Go line table.
// Addresses are link-time addresses; for a position independent executable
// they differ from the running addresses by the load bias.
type File struct {
	Arch string // GOARCH of the executable

	r     *os.File
	obj   object
	table *gosym.Table
	cache cache
}

// object is the part of an object file format that File needs.
type object interface {
	io.Closer

	// goarch returns the GOARCH the file was built for.
	goarch() string

	// pclntab returns the Go line table and the address of the text
	// segment it is relative to.
	pclntab() ([]byte, uint64, error)

	// readText reads text bytes at a link-time address.
	readText(buf []byte, addr uint64) error
}

var objType = []func(io.ReaderAt) (object, error){
	openElf,
	openMacho,
}

// Open reads the symbol table of the executable at path.
func Open(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, errors.Mark(err, ErrUnavailable)
	}

	var obj object
	for _, try := range objType {
		obj, err = try(r)
		if err == nil {
			break
		}
	}
	if obj == nil {
		r.Close()
		return nil, errors.Wrapf(ErrUnavailable, "open %s: unrecognized object file", path)
	}

	f, err := newFile(obj)
	if err != nil {
		r.Close()
		return nil, errors.Wrapf(err, "open %s", path)
	}
	f.r = r
	return f, nil
}

// OpenSelf opens the running executable.
func OpenSelf() (*File, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, errors.Mark(err, ErrUnavailable)
	}
	return Open(path)
}

func newFile(obj object) (*File, error) {
	data, text, err := obj.pclntab()
	if err != nil {
		return nil, errors.Mark(err, ErrUnavailable)
	}

	table, err := gosym.NewTable(nil, gosym.NewLineTable(data, text))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse line table"), ErrUnavailable)
	}

	return &File{
		Arch:  obj.goarch(),
		obj:   obj,
		table: table,
		cache: newCache(),
	}, nil
}

// Close releases the underlying file.
func (f *File) Close() error {
	f.obj.Close()
	return f.r.Close()
}

// Resolve returns the function containing the link-time address pc.
func (f *File) Resolve(pc uintptr) (Symbol, bool) {
	return f.cache.lookup(pc, func(pc uintptr) (Symbol, bool) {
		fn := f.table.PCToFunc(uint64(pc))
		if fn == nil {
			return Symbol{}, false
		}
		return symbolOf(fn, pc), true
	})
}

// Lookup returns the function with the given fully qualified name.
func (f *File) Lookup(name string) (Symbol, bool) {
	fn := f.table.LookupFunc(name)
	if fn == nil {
		return Symbol{}, false
	}
	return symbolOf(fn, uintptr(fn.Entry)), true
}

// Code returns the first n bytes of sym's machine code.
func (f *File) Code(sym Symbol, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := f.obj.readText(buf, uint64(sym.Entry)); err != nil {
		return nil, errors.Wrapf(err, "read %s", sym.Name)
	}
	return buf, nil
}

func symbolOf(fn *gosym.Func, pc uintptr) Symbol {
	return Symbol{
		Name:   fn.Name,
		Entry:  uintptr(fn.Entry),
		Size:   uintptr(fn.End - fn.Entry),
		Offset: pc - uintptr(fn.Entry),
	}
}
