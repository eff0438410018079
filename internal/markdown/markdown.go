package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

var (
	rendererMu sync.Mutex
	renderers  = map[int]*glamour.TermRenderer{}
)

// Render formats markdown for terminal display at the given width. It
// degrades to the raw text when a renderer cannot be built, so preview
// never fails.
func Render(width int, input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	if width < 1 {
		width = 1
	}

	renderer := rendererFor(width)
	if renderer == nil {
		return input
	}
	rendered, err := renderer.Render(input)
	if err != nil {
		return input
	}
	return strings.TrimRight(rendered, "\n")
}

// rendererFor caches one renderer per width; glamour renderer construction
// is not cheap enough to repeat on every resize.
func rendererFor(width int) *glamour.TermRenderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	if cached, ok := renderers[width]; ok {
		return cached
	}
	created, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderers[width] = created
	return created
}
