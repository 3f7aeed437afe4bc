package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pboyd/hijack"
	"github.com/pboyd/hijack/internal/arch"
	"github.com/pboyd/hijack/internal/symtab"
)

type inspectOptions struct {
	binary string
	json   bool
	disasm bool
}

// report is the result of inspecting one symbol.
type report struct {
	Symbol      string `json:"symbol"`
	Found       bool   `json:"found"`
	Entry       string `json:"entry,omitempty"`
	Size        uint64 `json:"size,omitempty"`
	Hijackable  bool   `json:"hijackable"`
	Trampoline  bool   `json:"trampoline"`
	Reason      string `json:"reason,omitempty"`
	Disassembly string `json:"disassembly,omitempty"`
}

func newInspectCmd() *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect [flags] SYMBOL...",
		Short: "Report whether functions in an executable can be hijacked",
		Example: `  hijackctl inspect main.main
  hijackctl inspect --binary ./server --disasm net/http.Get`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openBinary(opts.binary)
			if err != nil {
				return err
			}
			defer f.Close()

			if f.Arch != runtime.GOARCH {
				log.Warn("executable architecture differs from hijackctl",
					zap.String("binary", f.Arch), zap.String("host", runtime.GOARCH))
			}

			reports, err := inspectAll(f, args, opts.disasm)
			if err != nil {
				return err
			}
			return writeReports(cmd.OutOrStdout(), reports, opts.json)
		},
	}

	cmd.Flags().StringVar(&opts.binary, "binary", "", "Executable to inspect (default: hijackctl itself)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&opts.disasm, "disasm", false, "Include the disassembled prologue")

	return cmd
}

func openBinary(path string) (*symtab.File, error) {
	if path == "" {
		return symtab.OpenSelf()
	}
	return symtab.Open(path)
}

// inspectAll inspects every symbol concurrently. Reports are returned in the
// order of names.
func inspectAll(f *symtab.File, names []string, disasm bool) ([]report, error) {
	reports := make([]report, len(names))

	// The object file readers are not safe for concurrent use.
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		g.Go(func() error {
			r, err := inspect(f, &mu, name, disasm)
			if err != nil {
				return errors.Wrapf(err, "inspect %s", name)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func inspect(f *symtab.File, mu *sync.Mutex, name string, disasm bool) (report, error) {
	r := report{Symbol: name}

	mu.Lock()
	sym, ok := f.Lookup(name)
	var code []byte
	var err error
	if ok {
		code, err = f.Code(sym, arch.CodeWindow)
	}
	mu.Unlock()

	if !ok {
		r.Reason = "symbol not found"
		return r, nil
	}
	if err != nil {
		return r, err
	}

	r.Found = true
	r.Entry = fmt.Sprintf("0x%x", sym.Entry)
	r.Size = uint64(sym.Size)

	log.Debug("inspecting", zap.String("symbol", name), zap.String("entry", r.Entry), zap.Uint64("size", r.Size))

	if sym.Size < hijack.HijackSize {
		r.Reason = fmt.Sprintf("%d bytes, need %d", sym.Size, hijack.HijackSize)
		return r, nil
	}
	r.Hijackable = true

	if err := arch.CanExcise(sym.Entry, code); err != nil {
		r.Reason = "no trampoline: " + err.Error()
	} else {
		r.Trampoline = true
	}

	if disasm {
		text, err := arch.Disassemble(code, sym.Entry)
		if err != nil {
			log.Warn("disassembly incomplete", zap.String("symbol", name), zap.Error(err))
		}
		r.Disassembly = text
	}

	return r, nil
}

func writeReports(w io.Writer, reports []report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	for _, r := range reports {
		if !r.Found {
			fmt.Fprintf(w, "%s: %s\n", r.Symbol, r.Reason)
			continue
		}

		fmt.Fprintf(w, "%s: entry %s, %d bytes, hijackable=%t trampoline=%t\n",
			r.Symbol, r.Entry, r.Size, r.Hijackable, r.Trampoline)
		if r.Reason != "" {
			fmt.Fprintf(w, "  %s\n", r.Reason)
		}
		if r.Disassembly != "" {
			fmt.Fprint(w, r.Disassembly)
		}
	}
	return nil
}
