// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wundergraph/go-freelist"
	"github.com/wundergraph/go-freelist/internal/region"
	"github.com/wundergraph/go-freelist/internal/script"
)

var runCmd = &cobra.Command{
	Use:   "run [trace]",
	Short: "Replay a trace and print the free list",
	Long: `Replay a trace file (or stdin when no file is given) and print the free
list after every dump operation and once at the end.

Example:
  freelistctl run trace.txt
  freelistctl run --align 16 --json trace.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return replay(cmd, args, true, nil)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [trace]",
	Short: "Replay a trace and check the ordered free-list invariant",
	Long: `Replay a trace and check that the final free list is sorted by address
and fully coalesced. Traces that end with fast operations need a defrag first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return replay(cmd, args, false, func(m *freelist.Manager) error {
			if err := m.Verify(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d free blocks\n", m.FreeCount())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd, verifyCmd)
}

// replay runs the trace against a fresh Manager. check, when set, runs after
// the trace while the regions are still alive.
func replay(cmd *cobra.Command, args []string, render bool, check func(*freelist.Manager) error) error {
	if align == 0 {
		return fmt.Errorf("--align must be positive")
	}
	in, closeIn, err := openTrace(cmd, args)
	if err != nil {
		return err
	}
	defer closeIn()

	ops, err := script.Parse(in)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr())
	m := freelist.NewManager(freelist.WithAlignment(uintptr(align)), freelist.WithLogger(logger))

	out := cmd.OutOrStdout()
	opts := []script.RunnerOption{script.WithRunnerLogger(logger)}
	if useMmap {
		opts = append(opts, script.WithAcquire(region.Map))
	}
	if render {
		opts = append(opts, script.WithDump(func(op script.Op, blocks []freelist.Block) error {
			return renderBlocks(out, fmt.Sprintf("line %d", op.Line), m, blocks)
		}))
	}

	runner := script.NewRunner(m, opts...)
	defer func() {
		if cerr := runner.Close(); cerr != nil {
			logger.Warn("freelistctl: releasing regions", "error", cerr)
		}
	}()

	if err := runner.Run(ops); err != nil {
		return err
	}
	if render {
		if err := renderBlocks(out, "final", m, m.FreeBlocks()); err != nil {
			return err
		}
	}
	if check != nil {
		return check(m)
	}
	return nil
}

func openTrace(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
