// Package output formats meetprep CLI output: status lines, ranked matches
// and index status, styled with lipgloss when writing to a terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Writer writes formatted CLI output.
type Writer struct {
	out    io.Writer
	styles Styles
	color  bool
}

// New creates a writer for out. Colour is used only when out is a terminal
// and NO_COLOR is unset.
func New(out io.Writer) *Writer {
	color := IsTTY(out) && !NoColor()
	styles := PlainStyles()
	if color {
		styles = ColorStyles()
	}
	return &Writer{out: out, styles: styles, color: color}
}

// Color reports whether styled output is enabled.
func (w *Writer) Color() bool {
	return w.color
}

// Status prints a message with an optional icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
}

// Statusf prints a formatted message with an optional icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Status("✅", w.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Warningf prints a formatted warning.
func (w *Writer) Warningf(format string, args ...any) {
	w.Status("⚠️ ", w.styles.Warning.Render(fmt.Sprintf(format, args...)))
}

// Errorf prints a formatted error.
func (w *Writer) Errorf(format string, args ...any) {
	w.Status("❌", w.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NoColor reports whether the NO_COLOR convention is in effect.
func NoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}
