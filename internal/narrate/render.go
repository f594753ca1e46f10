package narrate

import (
	"github.com/charmbracelet/glamour"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderHTML converts Markdown narration into a complete HTML page. Chart
// references stay relative, so the page works next to the PNG files.
func RenderHTML(md, title string) []byte {
	if title == "" {
		title = "Analysis report"
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.CompletePage,
		Title: title,
	})
	return markdown.ToHTML([]byte(md), p, r)
}

// RenderTerminal styles Markdown narration for an interactive terminal.
func RenderTerminal(md string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
