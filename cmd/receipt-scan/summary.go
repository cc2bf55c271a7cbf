package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zombor/receipt-scanner/internal/export"
	"github.com/zombor/receipt-scanner/internal/receipt"
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")) // cyan
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))            // green
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))           // yellow
	styleBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)
)

// printSummary writes the completion banner. result is nil when nothing was saved.
func printSummary(w io.Writer, batch *receipt.Batch, result *export.Result) {
	var b strings.Builder

	if len(batch.Records) > 0 {
		b.WriteString(styleTitle.Render("--- EXTRACTION COMPLETE ---"))
	} else {
		b.WriteString(styleWarn.Render("--- NO RECEIPTS EXTRACTED ---"))
	}
	b.WriteString("\n")

	passed := 0
	for _, r := range batch.Records {
		if r.Validation.Passed {
			passed++
		}
	}

	fmt.Fprintf(&b, "Images found:       %d\n", batch.Discovered)
	fmt.Fprintf(&b, "Receipts extracted: %s\n", styleOK.Render(fmt.Sprint(len(batch.Records))))
	fmt.Fprintf(&b, "Totals validated:   %d/%d\n", passed, len(batch.Records))
	fmt.Fprintf(&b, "Failed:             %s\n", countStyle(batch.Failed).Render(fmt.Sprint(batch.Failed)))
	fmt.Fprintf(&b, "No receipt found:   %s", countStyle(batch.Empty).Render(fmt.Sprint(batch.Empty)))

	if result != nil && result.Saved > 0 {
		fmt.Fprintf(&b, "\nDetails:            %s", result.DetailPath)
		fmt.Fprintf(&b, "\nSummary:            %s", result.SummaryPath)
		if result.Published != "" {
			fmt.Fprintf(&b, "\nPublished:          %s", result.Published)
		}
	}

	fmt.Fprintln(w, styleBox.Render(b.String()))
}

func countStyle(n int) lipgloss.Style {
	if n > 0 {
		return styleWarn
	}
	return styleOK
}
