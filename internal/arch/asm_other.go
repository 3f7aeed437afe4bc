//go:build !amd64 && !arm64

package arch

import (
	"runtime"

	"github.com/cockroachdb/errors"
)

var errUnsupported = errors.Newf("hijacking is not implemented on %s", runtime.GOARCH)

func EncodeJump(buf []byte, dest uintptr) error {
	return errUnsupported
}

func CanExcise(pc uintptr, code []byte) error {
	return errUnsupported
}

func Disassemble(code []byte, pc uintptr) (string, error) {
	return "", errUnsupported
}
