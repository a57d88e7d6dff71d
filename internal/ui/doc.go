// Package ui renders terminal output for the watering-bridge command line.
//
// The one-shot commands (ports, decode, send, config) print a header box
// followed by a result box; the interactive monitor reuses the palette and
// panel styles defined here.
//
// Output is styled with Lipgloss. Widths follow the terminal size as reported
// by golang.org/x/term, clamped between MinTerminalWidth and MaxContentWidth.
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Send command", "watering-bridge send checkNow",
//	    ui.Detail{Key: "Bridge", Value: url})
//	if err != nil {
//	    p.PrintFailure("Command failed", err, []string{"Is the bridge running?"})
//	}
package ui
