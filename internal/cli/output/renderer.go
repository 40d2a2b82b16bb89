// Package output renders command results in one of several modes: styled
// terminal text, plain text, markdown, or machine-readable JSON. Commands
// pick shapes per mode; the renderer owns writers, styling, and mode
// detection.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
)

// Mode selects the rendering format.
type Mode string

const (
	// ModeAuto picks text on a TTY and plain text otherwise.
	ModeAuto Mode = "auto"
	// ModeText renders human-readable terminal output.
	ModeText Mode = "text"
	// ModeMarkdown renders markdown suitable for docs and PR comments.
	ModeMarkdown Mode = "markdown"
	// ModeJSON renders machine-readable JSON.
	ModeJSON Mode = "json"
)

// Renderer writes command output in the selected mode.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer for the given writers and mode. Styling
// is enabled only for ModeText (or ModeAuto on a TTY).
func NewRenderer(stdout, stderr io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	isTTY := false
	if f, ok := stdout.(*os.File); ok {
		isTTY = termenv.NewOutput(f).EnvColorProfile() != termenv.Ascii &&
			isTerminal(f)
	}

	r := &Renderer{
		stdout: stdout,
		stderr: stderr,
		mode:   mode,
		isTTY:  isTTY,
	}
	if r.EffectiveMode() == ModeText && isTTY {
		r.styles = DefaultStyles()
	} else {
		r.styles = PlainStyles()
	}
	return r
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// EffectiveMode resolves ModeAuto to a concrete mode.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode == ModeAuto {
		return ModeText
	}
	return r.mode
}

// IsTTY reports whether stdout is an interactive terminal.
func (r *Renderer) IsTTY() bool {
	return r.isTTY
}

// Styles returns the active style set.
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Writer returns the output writer for direct use (tables, raw dumps).
func (r *Renderer) Writer() io.Writer {
	return r.stdout
}

// ErrWriter returns the diagnostic writer.
func (r *Renderer) ErrWriter() io.Writer {
	return r.stderr
}

// Println writes a line to stdout.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.stdout, a...)
}

// Printf writes formatted output to stdout.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.stdout, format, a...)
}

// Header writes a styled (or markdown) header line.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		return
	}
	r.Println(r.styles.Header.Render(text))
}

// Success writes a highlighted success line.
func (r *Renderer) Success(text string) {
	r.Println(r.styles.Success.Render(text))
}

// Warning writes a highlighted warning line to stderr.
func (r *Renderer) Warning(text string) {
	_, _ = fmt.Fprintln(r.stderr, r.styles.Warning.Render(text))
}

// Muted writes a de-emphasized line.
func (r *Renderer) Muted(text string) {
	r.Println(r.styles.Muted.Render(text))
}

// StatusLine writes a "label: value" line with a bold label.
func (r *Renderer) StatusLine(label, value string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatKeyValue(label, value))
		return
	}
	r.Printf("%s %s\n", r.styles.Bold.Render(label+":"), value)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
