package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes styled output for the one-shot CLI commands.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Detail) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Detail) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details ...Detail) {
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintFailure prints an error result box with troubleshooting tips
func (p *Printer) PrintFailure(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintTable prints rows under a styled header line. Columns are padded to
// the widest cell.
func (p *Printer) PrintTable(columns []string, rows [][]string) {
	p.Println(RenderTable(columns, rows))
}

// PrintOutput prints preformatted text in a muted box, e.g. a decoded frame.
func (p *Printer) PrintOutput(title, output string) {
	content := lipgloss.JoinVertical(lipgloss.Left,
		MutedStyle.Bold(true).Render(title),
		ValueStyle.Render(output),
	)
	p.Println(lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(p.width-4).
		Padding(0, 1).
		Render(content))
}

// Confirm prints a warning box and asks for a yes/no answer on in. Anything
// but "y" or "yes" declines.
func (p *Printer) Confirm(in io.Reader, title string, warnings []string) bool {
	lines := []string{"", WarningTitleStyle.Render("   " + WarningMarker + "  WARNING  ─  " + title), ""}
	for _, w := range warnings {
		lines = append(lines, ValueStyle.Render("   • "+w))
	}
	lines = append(lines, "")
	p.Println(ResultBoxStyle(p.width, WarningColor).Render(strings.Join(lines, "\n")))

	_, _ = fmt.Fprint(p.out, WarningTitleStyle.Render("Proceed? [y/N]: "))
	answer, err := bufio.NewReader(in).ReadString('\n')
	p.Println("")
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	p.Println(MutedStyle.Render("  Operation cancelled."))
	return false
}

// RenderTable renders rows as aligned columns.
func RenderTable(columns []string, rows [][]string) string {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = lipgloss.Width(c)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = style.Width(widths[i]).Render(cell)
		}
		return "  " + strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	out := []string{line(columns, TableHeaderStyle)}
	for _, row := range rows {
		out = append(out, line(row, ValueStyle))
	}
	return strings.Join(out, "\n")
}
