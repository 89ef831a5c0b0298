package receipt

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	markdown     = goldmark.New()
	footerPolicy = bluemonday.UGCPolicy()
	stripPolicy  = bluemonday.StrictPolicy()
)

// Footer renders store footer markdown to sanitised HTML. Raw HTML in the source never survives.
func Footer(source string) (template.HTML, error) {
	rendered, err := renderMarkdown(source)
	if err != nil || rendered == "" {
		return "", err
	}
	return template.HTML(strings.TrimSpace(footerPolicy.Sanitize(rendered))), nil
}

// FooterText renders footer markdown as plain lines for text and PDF receipts.
func FooterText(source string) ([]string, error) {
	rendered, err := renderMarkdown(source)
	if err != nil || rendered == "" {
		return nil, err
	}
	// Block ends become line breaks before every tag is stripped.
	rendered = strings.NewReplacer("</p>", "\n", "<br>", "\n", "<br/>", "\n", "<br />", "\n", "</li>", "\n").Replace(rendered)
	plain := html.UnescapeString(stripPolicy.Sanitize(rendered))

	var lines []string
	for _, line := range strings.Split(plain, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines, nil
}

func renderMarkdown(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
