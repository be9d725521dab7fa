package report

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

const defaultWidth = 100

// Renderer writes markdown documents, styled through glamour when the
// destination is a terminal and verbatim otherwise.
type Renderer struct {
	w     io.Writer
	style bool
	width int
}

// NewRenderer inspects w: an *os.File attached to a terminal gets styled
// output wrapped to the terminal width.
func NewRenderer(w io.Writer) *Renderer {
	r := &Renderer{w: w, width: defaultWidth}
	f, ok := w.(*os.File)
	if !ok {
		return r
	}
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return r
	}
	r.style = true
	if tw, _, err := term.GetSize(int(fd)); err == nil && tw > 0 {
		r.width = tw
	}
	return r
}

// Plain forces verbatim markdown output
func (r *Renderer) Plain() *Renderer {
	r.style = false
	return r
}

// Styled reports whether output goes through glamour
func (r *Renderer) Styled() bool { return r.style }

// Render writes the documents in order, separated by blank lines.
func (r *Renderer) Render(docs ...string) error {
	var doc string
	for i, d := range docs {
		if i > 0 {
			doc += "\n"
		}
		doc += d
	}

	if !r.style {
		_, err := io.WriteString(r.w, doc)
		return err
	}

	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(r.width),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := tr.Render(doc)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(r.w, out)
	return err
}
