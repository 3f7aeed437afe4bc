package main

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pboyd/hijack"
)

//go:noinline
func probe(n int) string {
	return fmt.Sprintf("original %d", n)
}

func probeHook(n int) string {
	return fmt.Sprintf("hijacked %d", n)
}

func newSelftestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Hijack a function inside hijackctl and restore it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := hijack.New(cfg.Engine, hijack.WithLogger(log))
			return selftest(cmd.Context(), e, cmd.OutOrStdout())
		},
	}
}

// selftest hijacks probe, checks the redirection, then tears down.
func selftest(ctx context.Context, e *hijack.Engine, w io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := e.Init(); err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, e.Shutdown(ctx))
	}()

	target, err := hijack.FuncAddr(probe)
	if err != nil {
		return err
	}

	step := func(name string, want string) error {
		got := probe(1)
		fmt.Fprintf(w, "%-8s probe(1) = %q\n", name, got)
		if got != want {
			return errors.Newf("%s: probe(1) = %q, want %q", name, got, want)
		}
		return nil
	}

	if err := step("before", "original 1"); err != nil {
		return err
	}
	if err := e.PrepareFunc(probe, probeHook, nil); err != nil {
		return err
	}
	if err := e.Enable(target); err != nil {
		return err
	}
	if err := e.WriteList(w); err != nil {
		return err
	}
	if err := step("enabled", "hijacked 1"); err != nil {
		return err
	}
	if err := e.Disable(target, false); err != nil {
		return err
	}
	if err := step("disabled", "original 1"); err != nil {
		return err
	}
	if err := e.WriteList(w); err != nil {
		return err
	}
	return nil
}
