package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func styled(w io.Writer, s lipgloss.Style, text string) string {
	if !isTerminal(w) {
		return text
	}
	return s.Render(text)
}

func success(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, styled(w, okStyle, "✓ "+fmt.Sprintf(format, a...)))
}

func warn(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, styled(w, warnStyle, "⚠ Warning: "+fmt.Sprintf(format, a...)))
}

func info(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, styled(w, dimStyle, fmt.Sprintf(format, a...)))
}

func fail(w io.Writer, err error) {
	fmt.Fprintln(w, styled(w, errStyle, "✗ Error: "+err.Error()))
}
