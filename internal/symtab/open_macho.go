package symtab

import (
	"debug/macho"
	"io"

	"github.com/cockroachdb/errors"
)

type machoFile struct {
	macho *macho.File
}

func openMacho(r io.ReaderAt) (object, error) {
	f, err := macho.NewFile(r)
	if err != nil {
		return nil, err
	}
	return &machoFile{f}, nil
}

func (m *machoFile) Close() error {
	return m.macho.Close()
}

func (m *machoFile) goarch() string {
	switch m.macho.Cpu {
	case macho.CpuAmd64:
		return "amd64"
	case macho.CpuArm64:
		return "arm64"
	}
	return m.macho.Cpu.String()
}

func (m *machoFile) pclntab() ([]byte, uint64, error) {
	text := m.macho.Section("__text")
	if text == nil {
		return nil, 0, errors.New("no __text section")
	}

	tab := m.macho.Section("__gopclntab")
	if tab == nil {
		return nil, 0, errors.New("no __gopclntab section")
	}

	data, err := tab.Data()
	if err != nil {
		return nil, 0, err
	}
	return data, text.Addr, nil
}

func (m *machoFile) readText(buf []byte, addr uint64) error {
	s := m.macho.Section("__text")
	if s == nil || addr < s.Addr || addr+uint64(len(buf)) > s.Addr+s.Size {
		return errors.Newf("address 0x%x not in __text", addr)
	}
	_, err := s.ReadAt(buf, int64(addr-s.Addr))
	return err
}
