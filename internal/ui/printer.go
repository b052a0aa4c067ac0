package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Detail is one key/value line of a report. Reports keep their order, so
// details are a slice rather than a map.
type Detail struct {
	Key   string
	Value string
}

// Printer renders reports to a writer. When the writer is not a terminal
// it prints plain text without borders or colors.
type Printer struct {
	out   io.Writer
	width int
	plain bool
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: TerminalWidth(w),
		plain: !IsTerminal(w),
	}
}

// Plain reports whether the printer writes unstyled text
func (p *Printer) Plain() bool {
	return p.plain
}

// SetPlain forces plain or styled output
func (p *Printer) SetPlain(plain bool) {
	p.plain = plain
}

// Width returns the content width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintDetails prints a titled box of key/value lines
func (p *Printer) PrintDetails(title, subtitle string, details []Detail) {
	p.Println(RenderDetails(title, subtitle, details, p.width, p.plain))
}

// PrintError prints an error box
func (p *Printer) PrintError(title string, err error) {
	if p.plain {
		p.Println(fmt.Sprintf("%s: %v", title, err))
		return
	}
	p.Println(RenderErrorBox(title, err, p.width))
}

// RenderDetails renders a titled list of key/value lines, boxed unless
// plain is set.
func RenderDetails(title, subtitle string, details []Detail, width int, plain bool) string {
	if plain {
		var b strings.Builder
		for _, d := range details {
			fmt.Fprintf(&b, "%s: %s\n", d.Key, d.Value)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	lines := []string{TitleStyle.Render(strings.ToUpper(title))}
	if subtitle != "" {
		lines = append(lines, SubtitleStyle.Render(subtitle))
	}
	lines = append(lines, RenderDivider(width-6))
	for _, d := range details {
		lines = append(lines, KeyStyle.Render(d.Key+":")+" "+ValueStyle.Render(d.Value))
	}
	return BoxStyle(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RenderErrorBox renders a failure title with the error message
func RenderErrorBox(title string, err error, width int) string {
	lines := []string{ErrorStyle.Render(FailureMarker + "  " + title)}
	if err != nil {
		lines = append(lines, "", ValueStyle.Render(err.Error()))
	}
	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}
