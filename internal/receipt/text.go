package receipt

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Shreyas-sv10/Shop2/internal/view"
)

const textWidth = 40

// TextRenderer prints a fixed-width bill for receipt printers.
type TextRenderer struct{}

func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

func (TextRenderer) Render(w io.Writer, bill view.BillView) error {
	footer, err := FooterText(bill.FooterMarkdown)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(w)
	rule := strings.Repeat("-", textWidth)
	writeLine := func(s string) {
		_, _ = out.WriteString(s)
		_ = out.WriteByte('\n')
	}

	if bill.Store.Name != "" {
		writeLine(center(bill.Store.Name))
	}
	if bill.Store.Address != "" {
		writeLine(center(bill.Store.Address))
	}
	writeLine(rule)
	writeLine(bill.Heading)
	if bill.Phone != "" {
		writeLine("Phone: " + bill.Phone)
	}
	writeLine(bill.DateLine)
	writeLine(rule)
	for _, line := range bill.Lines {
		writeLine(columns(line.Name+" ("+line.DisplayQuantity+")", line.Amount))
	}
	writeLine(rule)
	writeLine(bill.TotalLine)
	for _, line := range footer {
		writeLine(center(line))
	}
	return out.Flush()
}

func center(s string) string {
	n := utf8.RuneCountInString(s)
	if n >= textWidth {
		return s
	}
	return strings.Repeat(" ", (textWidth-n)/2) + s
}

// columns right-aligns right against left, wrapping to a new line when both do not fit.
func columns(left, right string) string {
	gap := textWidth - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		return left + "\n" + strings.Repeat(" ", max(textWidth-utf8.RuneCountInString(right), 0)) + right
	}
	return left + strings.Repeat(" ", gap) + right
}
