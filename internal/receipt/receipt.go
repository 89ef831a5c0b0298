// Package receipt prints bills as plain text, HTML or PDF.
package receipt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Shreyas-sv10/Shop2/internal/view"
)

// ErrUnknownFormat reports a print format with no renderer.
var ErrUnknownFormat = errors.New("receipt: unknown format")

// Renderer writes a printable bill.
type Renderer interface {
	Render(w io.Writer, bill view.BillView) error
	ContentType() string
}

// ForFormat picks the renderer for text, html or pdf. A blank name means html.
func ForFormat(name string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "html":
		return HTMLRenderer{}, nil
	case "text", "txt":
		return TextRenderer{}, nil
	case "pdf":
		return PDFRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}
