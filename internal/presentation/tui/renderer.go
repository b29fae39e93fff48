package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders a document comment as markdown
// with glamour. When the renderer cannot be built, comments are returned as is.
func NewRenderer(width int) func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return PlainRenderer
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// PlainRenderer leaves the comment untouched apart from trailing space.
func PlainRenderer(markdown string) (string, error) {
	return strings.TrimRight(markdown, " \n") + "\n", nil
}
