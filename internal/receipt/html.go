package receipt

import (
	"embed"
	"html/template"
	"io"

	"github.com/Shreyas-sv10/Shop2/internal/view"
)

//go:embed templates/bill.html.tmpl
var templateFS embed.FS

var billTemplate = template.Must(template.ParseFS(templateFS, "templates/bill.html.tmpl"))

// HTMLRenderer prints a standalone HTML page with a print button.
type HTMLRenderer struct{}

func (HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }

func (HTMLRenderer) Render(w io.Writer, bill view.BillView) error {
	footer, err := Footer(bill.FooterMarkdown)
	if err != nil {
		return err
	}
	return billTemplate.ExecuteTemplate(w, "bill.html.tmpl", struct {
		Bill   view.BillView
		Footer template.HTML
	}{Bill: bill, Footer: footer})
}
