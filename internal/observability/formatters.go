// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/issues-dataset/internal/export"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// summaryTimeLayout is used for times inside the summary box
	summaryTimeLayout = "2006-01-02 15:04:05"
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

// PrintRunSummary outputs the outcome of a run as recorded in its manifest.
func (p *Printer) PrintRunSummary(m *export.Manifest) {
	if m == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Run:        %s\n", m.RunID))
	sb.WriteString(fmt.Sprintf("Server:     %s\n", m.Server))
	sb.WriteString(fmt.Sprintf("Query:      %s (%s)\n", m.Query, m.QueryType))
	sb.WriteString(fmt.Sprintf("Range:      %s → %s\n", m.Start.Format(summaryTimeLayout), m.End.Format(summaryTimeLayout)))
	sb.WriteString(fmt.Sprintf("Order:      %s, %s\n", m.OrderBy, m.Direction))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Windows:    %d\n", m.Windows))
	sb.WriteString(fmt.Sprintf("Issues:     %d\n", m.Totals.Issues))
	sb.WriteString(fmt.Sprintf("Activities: %d\n", m.Totals.Activities))
	sb.WriteString(fmt.Sprintf("Elapsed:    %s\n", (time.Duration(m.ElapsedSeconds * float64(time.Second))).Round(time.Millisecond)))

	// Output files
	if m.IssuesFile != "" || m.ActivitiesFile != "" {
		sb.WriteString("\nFiles:\n")
		if m.IssuesFile != "" {
			sb.WriteString(fmt.Sprintf("  • %s\n", m.IssuesFile))
		}
		if m.ActivitiesFile != "" && m.ActivitiesFile != m.IssuesFile {
			sb.WriteString(fmt.Sprintf("  • %s\n", m.ActivitiesFile))
		}
	}

	if m.Error != "" {
		sb.WriteString(fmt.Sprintf("\n✗ %s\n", m.Error))
	}

	title := "EXPORT COMPLETE"
	if m.Error != "" {
		title = "EXPORT FAILED"
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProgress outputs a single line for a progress event. It has the
// signature of export.ProgressCallback's argument and can be passed as one.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event export.ProgressEvent) {
	switch event.Step {
	case export.StepWindow:
		fmt.Fprintf(p.out, "▸ %s → %s\n",
			event.Window.Lower().Format(summaryTimeLayout), event.Window.Upper().Format(summaryTimeLayout))
	case export.StepIssues, export.StepActivities:
		fmt.Fprintf(p.out, "  %-10s +%d (issues %d, activities %d)\n",
			event.Step, event.Count, event.Totals.Issues, event.Totals.Activities)
	case export.StepDone:
		fmt.Fprintf(p.out, "✓ %s\n", event.Message)
	}
}
