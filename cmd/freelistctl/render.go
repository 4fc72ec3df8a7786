// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wundergraph/go-freelist"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var printer = message.NewPrinter(language.English)

// snapshot is the JSON form of a rendered free list.
type snapshot struct {
	Label     string           `json:"label"`
	Blocks    []freelist.Block `json:"blocks"`
	FreeBytes int              `json:"free_bytes"`
	InUse     int              `json:"in_use"`
	Capacity  int              `json:"capacity"`
	Peak      int              `json:"peak"`
}

func renderBlocks(w io.Writer, label string, m *freelist.Manager, blocks []freelist.Block) error {
	sorted := slices.Clone(blocks)
	freelist.SortBlocks(sorted)
	free := 0
	for _, b := range sorted {
		free += int(b.Size)
	}

	if jsonOut {
		if sorted == nil {
			sorted = []freelist.Block{}
		}
		return printJSON(w, snapshot{
			Label:     label,
			Blocks:    sorted,
			FreeBytes: free,
			InUse:     m.Len(),
			Capacity:  m.Cap(),
			Peak:      m.Peak(),
		})
	}

	var sb strings.Builder
	title := fmt.Sprintf("Free list (%s)", label)
	stats := printer.Sprintf("%d blocks, %d bytes free, %d in use, %d peak, %d registered",
		len(sorted), free, m.Len(), m.Peak(), m.Cap())
	if noColor {
		sb.WriteString(title + "\n" + stats + "\n")
	} else {
		sb.WriteString(titleStyle.Render(title) + "\n" + dimStyle.Render(stats) + "\n")
	}
	sb.WriteString(strings.Repeat("-", 48) + "\n")
	for _, b := range sorted {
		sb.WriteString(printer.Sprintf("%#018x | %12d\n", b.Addr, b.Size))
	}
	sb.WriteString(strings.Repeat("-", 48) + "\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
