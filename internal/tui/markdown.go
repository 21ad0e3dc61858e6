package tui

import (
	"github.com/charmbracelet/glamour"
)

// renderMarkdown renders a comment body for the detail view. Render errors
// fall back to the raw text; a broken comment body should never take the
// panel down with it.
func renderMarkdown(body string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return body
	}
	out, err := r.Render(body)
	if err != nil {
		return body
	}
	return out
}
