package stw

import (
	"bufio"
	"bytes"
	"runtime"
	"strconv"
	"strings"
)

// Frame is one stack frame from a goroutine traceback.
type Frame struct {
	Func   string
	Offset uintptr // pc - entry
}

// ActiveWithin reports whether any goroutine has a frame whose pc lies in
// [entry, entry+size). entry must be the entry point of a Go function.
//
// A frame that merely returns into the region counts: once the region is
// rewritten that goroutine would resume in the middle of the new bytes.
func ActiveWithin(entry uintptr, size int) bool {
	fn := runtime.FuncForPC(entry)
	if fn == nil || fn.Entry() != entry {
		// Not Go code, so no goroutine can be running it.
		return false
	}
	return framesWithin(parseTraceback(allStacks()), fn.Name(), uintptr(size))
}

func framesWithin(frames []Frame, name string, size uintptr) bool {
	for _, f := range frames {
		if f.Func == name && f.Offset < size {
			return true
		}
	}
	return false
}

func allStacks() []byte {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return buf[:n]
		}
		buf = make([]byte, 2*len(buf))
	}
}

// parseTraceback extracts frames from runtime.Stack output:
//
//	goroutine 1 [running]:
//	main.f(...)
//		/src/main.go:12 +0x1d
//	created by main.main in goroutine 1
//		/src/main.go:20 +0x25
//
// "created by" entries name the spawning call site, not a frame of the
// goroutine, and are skipped. So are inlined frames, which have no offset.
func parseTraceback(trace []byte) []Frame {
	var (
		frames  []Frame
		current string
	)

	sc := bufio.NewScanner(bytes.NewReader(trace))
	sc.Buffer(make([]byte, 0, 4096), len(trace)+1)
	for sc.Scan() {
		line := sc.Text()

		switch {
		case line == "":
			current = ""
		case strings.HasPrefix(line, "\t"):
			if current == "" {
				continue
			}
			i := strings.LastIndex(line, " +0x")
			if i < 0 {
				current = ""
				continue
			}
			off, err := strconv.ParseUint(line[i+len(" +0x"):], 16, 64)
			if err == nil {
				frames = append(frames, Frame{Func: current, Offset: uintptr(off)})
			}
			current = ""
		case strings.HasPrefix(line, "goroutine "), strings.HasPrefix(line, "created by "):
			current = ""
		default:
			current = funcName(line)
		}
	}
	return frames
}

// funcName strips the argument list from a traceback function line.
func funcName(line string) string {
	i := strings.LastIndex(line, "(")
	if i <= 0 {
		return ""
	}
	return line[:i]
}
