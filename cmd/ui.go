package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	labelStyle   = lipgloss.NewStyle().Faint(true).Width(16)
	valueStyle   = lipgloss.NewStyle().Bold(true)
)

// printer writes human progress lines to the command's stdout.
type printer struct {
	w io.Writer
}

func newPrinter(cmd *cobra.Command) *printer {
	return &printer{w: cmd.OutOrStdout()}
}

func (p *printer) line(icon, format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", icon, fmt.Sprintf(format, args...))
}

func (p *printer) success(format string, args ...interface{}) {
	p.line("✅", "%s", successStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) warn(format string, args ...interface{}) {
	p.line("⚠️ ", "%s", warnStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) fail(format string, args ...interface{}) {
	p.line("❌", "%s", errorStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) field(label string, value interface{}) {
	fmt.Fprintf(p.w, "   %s%s\n", labelStyle.Render(label+":"), valueStyle.Render(fmt.Sprint(value)))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
