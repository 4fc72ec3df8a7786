// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	jsonOut bool
	noColor bool
	align   uint
	useMmap bool
)

var rootCmd = &cobra.Command{
	Use:   "freelistctl",
	Short: "Replay free-list allocator traces",
	Long: `freelistctl replays traces of allocator operations (region registration,
malloc, free, defrag) against a fresh free-list allocator and prints the
resulting free list.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every operation to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().UintVar(&align, "align", 8, "Alignment requirement in bytes")
	rootCmd.PersistentFlags().BoolVar(&useMmap, "mmap", false, "Back trace regions with anonymous mappings instead of the Go heap")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger returns a debug text logger on stderr in verbose mode and a
// discarding logger otherwise.
func newLogger(stderr io.Writer) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// printJSON outputs data as JSON
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
