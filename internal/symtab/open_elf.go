package symtab

import (
	"debug/elf"
	"io"

	"github.com/cockroachdb/errors"
)

type elfFile struct {
	elf *elf.File
}

func openElf(r io.ReaderAt) (object, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	return &elfFile{f}, nil
}

func (e *elfFile) Close() error {
	return e.elf.Close()
}

func (e *elfFile) goarch() string {
	switch e.elf.Machine {
	case elf.EM_X86_64:
		return "amd64"
	case elf.EM_AARCH64:
		return "arm64"
	case elf.EM_386:
		return "386"
	case elf.EM_ARM:
		return "arm"
	}
	return e.elf.Machine.String()
}

func (e *elfFile) pclntab() ([]byte, uint64, error) {
	text := e.elf.Section(".text")
	if text == nil {
		return nil, 0, errors.New("no .text section")
	}

	tab := e.elf.Section(".gopclntab")
	if tab == nil {
		tab = e.elf.Section(".data.rel.ro.gopclntab")
	}
	if tab == nil {
		return nil, 0, errors.New("no .gopclntab section")
	}

	data, err := tab.Data()
	if err != nil {
		return nil, 0, err
	}
	return data, text.Addr, nil
}

func (e *elfFile) readText(buf []byte, addr uint64) error {
	for _, s := range e.elf.Sections {
		if s.Flags&elf.SHF_EXECINSTR == 0 || addr < s.Addr || addr+uint64(len(buf)) > s.Addr+s.Size {
			continue
		}
		_, err := s.ReadAt(buf, int64(addr-s.Addr))
		return err
	}
	return errors.Newf("address 0x%x not in an executable section", addr)
}
