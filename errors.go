package hijack

import (
	"github.com/cockroachdb/errors"

	"github.com/pboyd/hijack/internal/stw"
)

// Errors returned by Prepare.
var (
	ErrTooShort                = errors.New("function too short to hijack")
	ErrNotFunctionStart        = errors.New("address is not a function entry point")
	ErrUnsupportedInstruction  = errors.New("prologue contains an instruction that cannot be moved")
	ErrDuplicateTarget         = errors.New("target already prepared")
	ErrOutOfMemory             = errors.New("trampoline region too small")
	ErrTrampolineNotExecutable = errors.New("trampoline region is not executable memory")

	// ErrAlreadyPrepared is the same error as ErrDuplicateTarget.
	ErrAlreadyPrepared = ErrDuplicateTarget
)

// Errors returned by Enable and Disable.
var (
	ErrNotPrepared = errors.New("target not prepared")
	ErrPatchFailed = errors.New("patch failed")
)

// Errors from the barrier. A failed patch is marked with ErrPatchFailed and
// wraps one of these.
var (
	ErrPauseTimeout          = stw.ErrPauseTimeout
	ErrActivenessCheckFailed = errors.New("execution context active inside patch region")
)

var (
	ErrSymbolResolverUnavailable = errors.New("symbol resolver unavailable")
	ErrNotInitialized            = errors.New("engine not initialized")
)
