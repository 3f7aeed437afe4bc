// Package hijack redirects functions in the running program to replacement
// functions by rewriting their first bytes with a jump.
//
// A target goes through four steps:
//
//	e := hijack.New(hijack.DefaultConfig())
//	e.Init()
//	e.Prepare(target, replacement, nil) // validate and snapshot
//	e.Enable(target)                    // install the jump
//	e.Disable(target, true)             // restore and forget
//
// Every rewrite happens under a barrier that holds off all other goroutines
// and only after checking that none of them is executing inside the bytes
// being replaced. The original bytes are saved at Prepare and written back
// verbatim by Disable.
//
// Limitations:
//   - Only amd64 and arm64 have jump encodings
//   - Silently fails to hijack inlined functions
//   - Trampolines copy the prologue verbatim, so prologues with PC-relative
//     instructions (including the usual Go stack check) are refused. Only
//     //go:nosplit functions and non-Go code usually qualify
//   - Trampoline regions must be executable memory, such as the regions
//     returned by AllocTrampoline
//   - The function table lookup relies on internal Go APIs that can break at
//     any time
package hijack
