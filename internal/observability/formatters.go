// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/homematch/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunStats outputs a summary of a completed matching run.
func (p *Printer) PrintRunStats(pairs, created, updated, skipped, priority, errors int, elapsed time.Duration) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Pairs evaluated:  %d\n", pairs))
	sb.WriteString(fmt.Sprintf("Created:          %d\n", created))
	sb.WriteString(fmt.Sprintf("Updated:          %d\n", updated))
	sb.WriteString(fmt.Sprintf("Skipped:          %d\n", skipped))
	sb.WriteString(fmt.Sprintf("Priority matches: %d\n", priority))
	if errors > 0 {
		sb.WriteString(fmt.Sprintf("Errors:           %d\n", errors))
	}
	sb.WriteString(fmt.Sprintf("Elapsed:          %s", elapsed.Round(time.Millisecond)))

	p.printBox("MATCHING RUN COMPLETE", sb.String())
}

// PrintMatchScore outputs one score breakdown with its highlights and concerns.
func (p *Printer) PrintMatchScore(buyerName, address string, score *types.MatchScore) {
	if score == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Buyer:    %s\n", buyerName))
	sb.WriteString(fmt.Sprintf("Property: %s\n", address))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Score: %d/100", score.Score))
	if score.IsPriority {
		sb.WriteString("  ★ priority")
	}
	sb.WriteString("\n")
	if score.DistanceMiles != nil {
		sb.WriteString(fmt.Sprintf("Distance: %.1f miles\n", *score.DistanceMiles))
	}

	if len(score.Highlights) > 0 {
		sb.WriteString("\nHighlights:\n")
		count := min(len(score.Highlights), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", score.Highlights[i]))
		}
	}
	if len(score.Concerns) > 0 {
		sb.WriteString("\nConcerns:\n")
		count := min(len(score.Concerns), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", score.Concerns[i]))
		}
	}

	p.printBox("MATCH BREAKDOWN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTopMatches outputs the highest-scoring match records.
func (p *Printer) PrintTopMatches(matches []types.MatchRecord) {
	if len(matches) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total matches: %d\n\n", len(matches)))

	count := min(len(matches), maxItemsToShow)
	for i := 0; i < count; i++ {
		m := matches[i]
		sb.WriteString(fmt.Sprintf("#%d  %s → %s\n", i+1, m.BuyerID, m.PropertyID))
		sb.WriteString(fmt.Sprintf("    Score: %d", m.Score))
		if m.IsPriority {
			sb.WriteString("  ★")
		}
		sb.WriteString(fmt.Sprintf("  [%s]\n", m.Stage))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(matches) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more matches", len(matches)-maxItemsToShow))
	}

	p.printBox("TOP MATCHES", sb.String())
}
